package experiment

import (
	"context"
	"fmt"
	"maps"
	"math"
	"sort"
	"strings"

	"github.com/san-kum/statespace/internal/config"
	"github.com/san-kum/statespace/internal/trajectory"
)

// GridSearch runs a scenario once per combination of model parameter values
// and ranks the runs by one metric, lowest first.
type GridSearch struct {
	names  []string
	values [][]float64
}

func NewGridSearch(grid map[string][]float64) *GridSearch {
	g := &GridSearch{}
	for name := range grid {
		g.names = append(g.names, name)
	}
	sort.Strings(g.names)
	for _, name := range g.names {
		g.values = append(g.values, grid[name])
	}
	return g
}

// Points returns every parameter combination, varying the last parameter
// (in name order) fastest.
func (g *GridSearch) Points() []map[string]float64 {
	points := []map[string]float64{{}}
	for i, name := range g.names {
		next := make([]map[string]float64, 0, len(points)*len(g.values[i]))
		for _, p := range points {
			for _, v := range g.values[i] {
				q := maps.Clone(p)
				q[name] = v
				next = append(next, q)
			}
		}
		points = next
	}
	return points
}

// SweepPoint is one evaluated combination.
type SweepPoint struct {
	Params map[string]float64
	Value  float64
	Result *trajectory.Result
}

func (p SweepPoint) String() string {
	parts := make([]string, 0, len(p.Params))
	for _, name := range sortedKeys(p.Params) {
		parts = append(parts, fmt.Sprintf("%s=%g", name, p.Params[name]))
	}
	return strings.Join(parts, " ")
}

// Search evaluates every point concurrently, at most limit at a time, and
// returns them sorted by metric value. Points whose metric is NaN sort last.
func (g *GridSearch) Search(ctx context.Context, reg *Registry, base *config.Config, metric string, limit int) ([]SweepPoint, error) {
	points := g.Points()
	jobs := make([]trajectory.Job, len(points))
	for i, params := range points {
		cfg := base.Clone()
		if cfg.Params == nil {
			cfg.Params = make(map[string]float64, len(params))
		}
		maps.Copy(cfg.Params, params)

		exp, err := New(reg, cfg)
		if err != nil {
			return nil, fmt.Errorf("point %d: %w", i, err)
		}
		jobs[i] = exp.Job(SweepPoint{Params: params}.String())
	}

	results, err := trajectory.RunEnsemble(ctx, jobs, limit)
	if err != nil {
		return nil, err
	}

	out := make([]SweepPoint, len(points))
	for i, r := range results {
		v, ok := r.Metrics[metric]
		if !ok {
			return nil, fmt.Errorf("unknown metric %q", metric)
		}
		out[i] = SweepPoint{Params: points[i], Value: v, Result: r}
	}

	sortPoints(out)
	return out, nil
}

func sortPoints(points []SweepPoint) {
	sort.SliceStable(points, func(i, j int) bool {
		if math.IsNaN(points[j].Value) {
			return !math.IsNaN(points[i].Value)
		}
		return points[i].Value < points[j].Value
	})
}
