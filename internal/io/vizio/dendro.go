package vizio

import (
	"fmt"
	"math"

	"github.com/phylomb/evepipe/internal/str"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// cluster is one node of the UPGMA tree. Leaves have size 1 and height
// zero.
type cluster struct {
	left, right *cluster
	leaf        int
	size        int
	height      float64
}

// Dendrogram clusters the sample columns of the log-abundance matrix
// by average linkage over Euclidean distance and renders the tree.
func Dendrogram(m *mat.Dense, labels []string, path string) error {
	_, samplesN := m.Dims()
	if samplesN != len(labels) {
		return fmt.Errorf(
			"vizio: %d sample columns but %d labels", samplesN, len(labels),
		)
	}
	if samplesN < 2 {
		return fmt.Errorf("vizio: too few samples for a dendrogram")
	}

	root := upgma(distances(m))

	p := plot.New()
	p.Title.Text = "Sample clustering (UPGMA)"
	p.Y.Label.Text = "distance"
	p.X.Tick.Marker = leafTicks{labels: labels, order: leafOrder(root)}

	next := 0.0
	if _, err := drawNode(p, root, &next); err != nil {
		return err
	}

	return p.Save(6*vg.Inch, 4*vg.Inch, path)
}

// distances computes the Euclidean distance between every pair of
// sample columns.
func distances(m *mat.Dense) [][]float64 {
	taxaN, samplesN := m.Dims()
	d := make([][]float64, samplesN)
	for i := range d {
		d[i] = make([]float64, samplesN)
	}
	for i := 0; i < samplesN; i++ {
		for j := i + 1; j < samplesN; j++ {
			var sum float64
			for k := 0; k < taxaN; k++ {
				diff := m.At(k, i) - m.At(k, j)
				sum += diff * diff
			}
			d[i][j] = math.Sqrt(sum)
			d[j][i] = d[i][j]
		}
	}
	return d
}

// upgma builds an average-linkage tree over a distance matrix.
func upgma(d [][]float64) *cluster {
	n := len(d)
	active := make([]*cluster, n)
	for i := range active {
		active[i] = &cluster{leaf: i, size: 1}
	}
	dist := make([][]float64, n)
	for i := range dist {
		dist[i] = append([]float64{}, d[i]...)
	}

	for len(active) > 1 {
		bi, bj := 0, 1
		for i := 0; i < len(active); i++ {
			for j := i + 1; j < len(active); j++ {
				if dist[i][j] < dist[bi][bj] {
					bi, bj = i, j
				}
			}
		}
		merged := &cluster{
			left:   active[bi],
			right:  active[bj],
			size:   active[bi].size + active[bj].size,
			height: dist[bi][bj],
		}

		// average-linkage distance of the merged cluster to the rest
		row := make([]float64, 0, len(active)-1)
		for k := 0; k < len(active); k++ {
			if k == bi || k == bj {
				continue
			}
			wi := float64(active[bi].size)
			wj := float64(active[bj].size)
			row = append(row, (wi*dist[bi][k]+wj*dist[bj][k])/(wi+wj))
		}

		var nextActive []*cluster
		var nextDist [][]float64
		for i := 0; i < len(active); i++ {
			if i == bi || i == bj {
				continue
			}
			nextActive = append(nextActive, active[i])
			var r []float64
			for j := 0; j < len(active); j++ {
				if j == bi || j == bj {
					continue
				}
				r = append(r, dist[i][j])
			}
			nextDist = append(nextDist, r)
		}
		for i := range nextDist {
			nextDist[i] = append(nextDist[i], row[i])
		}
		nextDist = append(nextDist, append(row, 0))
		nextActive = append(nextActive, merged)

		active = nextActive
		dist = nextDist
	}
	return active[0]
}

// leafOrder returns leaf indices left to right.
func leafOrder(c *cluster) []int {
	if c.left == nil {
		return []int{c.leaf}
	}
	return append(leafOrder(c.left), leafOrder(c.right)...)
}

// drawNode draws the bracket of every merge and returns the x position
// of the subtree it was called on. Leaves are placed at consecutive
// integer positions in left-to-right order.
func drawNode(p *plot.Plot, c *cluster, next *float64) (float64, error) {
	if c.left == nil {
		x := *next
		*next += 1
		return x, nil
	}
	lx, err := drawNode(p, c.left, next)
	if err != nil {
		return 0, err
	}
	rx, err := drawNode(p, c.right, next)
	if err != nil {
		return 0, err
	}
	bracket := plotter.XYs{
		{X: lx, Y: c.left.height},
		{X: lx, Y: c.height},
		{X: rx, Y: c.height},
		{X: rx, Y: c.right.height},
	}
	line, err := plotter.NewLine(bracket)
	if err != nil {
		return 0, err
	}
	p.Add(line)
	return (lx + rx) / 2, nil
}

// leafTicks labels integer x positions with sample names in dendrogram
// leaf order.
type leafTicks struct {
	labels []string
	order  []int
}

func (t leafTicks) Ticks(min, max float64) []plot.Tick {
	var res []plot.Tick
	for pos, leaf := range t.order {
		x := float64(pos)
		if x < min || x > max {
			continue
		}
		res = append(res, plot.Tick{
			Value: x,
			Label: str.ShortLabel(t.labels[leaf]),
		})
	}
	return res
}
