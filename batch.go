package sfmesh

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"unicode"

	"github.com/pkg/errors"
	"github.com/puzpuzpuz/xsync/v4"
	"go.uber.org/zap"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

type BatchMode int

const (
	// BatchOff writes every object into one file.
	BatchOff BatchMode = iota
	// BatchObject writes one file per mesh object.
	BatchObject
)

func (m BatchMode) String() string {
	if m == BatchObject {
		return "object"
	}
	return "off"
}

func ParseBatchMode(s string) (BatchMode, error) {
	switch strings.ToLower(s) {
	case "", "off":
		return BatchOff, nil
	case "object":
		return BatchObject, nil
	}
	return BatchOff, errors.Errorf("unknown batch mode %q", s)
}

type BatchOptions struct {
	ExportOptions
	Mode BatchMode
	// Workers bounds concurrent per-object exports. Values below 2 run them
	// one after another.
	Workers int
	// Selection restricts the export to the named nodes when non-empty.
	Selection []string
}

// EnsureExt appends ext unless path already ends with it, ignoring case.
func EnsureExt(path, ext string) string {
	if strings.HasSuffix(strings.ToLower(path), strings.ToLower(ext)) {
		return path
	}
	return path + ext
}

var stripMarks = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// CleanName makes an object name safe to use in a file name. Accents are
// folded to their base letter, anything outside [A-Za-z0-9_.-] becomes '_'.
func CleanName(name string) string {
	folded, _, err := transform.String(stripMarks, name)
	if err != nil {
		folded = name
	}
	var sb strings.Builder
	for _, r := range folded {
		switch {
		case r < 0x80 && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			sb.WriteRune(r)
		case r == '_' || r == '-' || r == '.':
			sb.WriteRune(r)
		default:
			sb.WriteByte('_')
		}
	}
	return sb.String()
}

// SelectNodes keeps the nodes whose names are listed, preserving order.
func SelectNodes(nodes []SceneNode, names []string) []SceneNode {
	if len(names) == 0 {
		return nodes
	}
	want := make(map[string]bool, len(names))
	for _, nm := range names {
		want[nm] = true
	}
	var out []SceneNode
	for _, nd := range nodes {
		if want[nd.Name()] {
			out = append(out, nd)
		}
	}
	return out
}

type batchJob struct {
	order int
	node  SceneNode
	path  string
}

// ObjectPaths derives the output file of every mesh node in per-object mode.
// The prefix is path with ext ensured and then stripped. A path already
// handed out gets the lowest free numeric suffix, so no export overwrites
// another.
func ObjectPaths(nodes []SceneNode, path, ext string) []string {
	full := EnsureExt(path, ext)
	prefix := full[:len(full)-len(ext)]
	used := make(map[string]bool)
	var paths []string
	for _, nd := range nodes {
		if nd.Kind() != KindMesh {
			continue
		}
		base := prefix + CleanName(nd.Name())
		p := base + ext
		for n := 2; used[p]; n++ {
			p = fmt.Sprintf("%s_%d%s", base, n, ext)
		}
		used[p] = true
		paths = append(paths, p)
	}
	return paths
}

// ExportBatch runs the export pipeline once (BatchOff) or once per mesh
// node (BatchObject). Per-object exports are independent: one failing does
// not stop the others. The returned error summarises failed exports.
func ExportBatch(ctx context.Context, nodes []SceneNode, path string, opts BatchOptions) ([]*ExportResult, error) {
	log := opts.logger()
	nodes = SelectNodes(nodes, opts.Selection)
	ext := opts.Ext()

	if opts.Mode == BatchOff {
		res := ExportScene(nodes, EnsureExt(path, ext), opts.ExportOptions)
		if res.Err != nil {
			return []*ExportResult{res}, res.Err
		}
		return []*ExportResult{res}, nil
	}

	var jobs []batchJob
	paths := ObjectPaths(nodes, path, ext)
	for _, nd := range nodes {
		if nd.Kind() != KindMesh {
			continue
		}
		jobs = append(jobs, batchJob{order: len(jobs), node: nd, path: paths[len(jobs)]})
	}

	results := xsync.NewMap[int, *ExportResult]()
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > len(jobs) {
		workers = len(jobs)
	}
	queue := make(chan batchJob)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range queue {
				log.Debug("exporting object", zap.String("object", job.node.Name()), zap.String("path", job.path))
				results.Store(job.order, ExportScene([]SceneNode{job.node}, job.path, opts.ExportOptions))
			}
		}()
	}

	var ctxErr error
feed:
	for _, job := range jobs {
		if ctxErr = ctx.Err(); ctxErr != nil {
			break
		}
		select {
		case queue <- job:
		case <-ctx.Done():
			ctxErr = ctx.Err()
			break feed
		}
	}
	close(queue)
	wg.Wait()

	out := make([]*ExportResult, 0, results.Size())
	failed := 0
	for i := range jobs {
		res, ok := results.Load(i)
		if !ok {
			continue
		}
		if res.Err != nil {
			failed++
			log.Error("export failed", zap.String("path", res.Path), zap.Error(res.Err))
		}
		out = append(out, res)
	}
	if ctxErr != nil {
		return out, errors.Wrap(ctxErr, "batch export interrupted")
	}
	if failed > 0 {
		return out, errors.Errorf("%d of %d exports failed", failed, len(jobs))
	}
	return out, nil
}
