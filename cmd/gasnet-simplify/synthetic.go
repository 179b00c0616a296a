package main

import (
	"fmt"
	"math/rand"

	"github.com/dd0wney/gasnet-simplify/pkg/network"
)

// syntheticNetwork builds a transmission trunk of n junctions fed by entry
// points at both ends, with compressor stations, looped sections, offtake
// branches to industrial and distribution sinks and short dead-end stubs.
// Capacities are estimated from pressure, diameter and length.
func syntheticNetwork(n int, seed int64) (*network.Graph, error) {
	if n < 2 {
		n = 2
	}
	r := rand.New(rand.NewSource(seed))
	b := network.NewBuilder()
	edges := 0

	addNode := func(id string, attrs network.Attributes) error {
		return b.AddNode(network.Node{ID: network.NodeID(id), Role: network.RoleFromName(id), Attrs: attrs})
	}
	addPipe := func(from, to string, pressure, diameter float64) error {
		edges++
		return b.AddEdge(network.Edge{
			ID:   network.EdgeID(fmt.Sprintf("P%05d", edges)),
			From: network.NodeID(from),
			To:   network.NodeID(to),
			Attrs: network.Attributes{
				network.Length:      float64(500 + r.Intn(20000)),
				network.Diameter:    diameter,
				network.MaxPressure: pressure,
			},
		})
	}

	trunk := make([]string, n)
	for i := range trunk {
		trunk[i] = fmt.Sprintf("X%04d", i)
		if i > 0 && i%25 == 0 {
			trunk[i] = fmt.Sprintf("CS%04d", i)
		}
		if err := addNode(trunk[i], network.Attributes{network.Elevation: float64(r.Intn(300))}); err != nil {
			return nil, err
		}
		if i > 0 {
			if err := addPipe(trunk[i-1], trunk[i], 84, 1000); err != nil {
				return nil, err
			}
		}
	}

	entries := []string{"IC0001", "LNG0001"}
	for k, id := range entries {
		if err := addNode(id, network.Attributes{network.Supply: float64(400 + r.Intn(200))}); err != nil {
			return nil, err
		}
		end := trunk[0]
		if k == 1 {
			end = trunk[n-1]
		}
		if err := addPipe(id, end, 84, 1200); err != nil {
			return nil, err
		}
	}

	sinks := 0
	for i := 2; i < n-2; i++ {
		switch r.Intn(8) {
		case 0:
			// Looped section parallel to the trunk.
			if err := addPipe(trunk[i], trunk[i+2], 70, 600); err != nil {
				return nil, err
			}
		case 1, 2:
			sinks++
			prefix := "DSO"
			if r.Intn(3) == 0 {
				prefix = "IND"
			}
			branch := fmt.Sprintf("X%04db", i)
			sink := fmt.Sprintf("%s%04d", prefix, sinks)
			if err := addNode(branch, nil); err != nil {
				return nil, err
			}
			if err := addNode(sink, network.Attributes{network.Supply: -float64(10 + r.Intn(60))}); err != nil {
				return nil, err
			}
			if err := addPipe(trunk[i], branch, 40, 400); err != nil {
				return nil, err
			}
			if err := addPipe(branch, sink, 16, 200); err != nil {
				return nil, err
			}
		case 3:
			stub := fmt.Sprintf("X%04ds", i)
			if err := addNode(stub, nil); err != nil {
				return nil, err
			}
			if err := addPipe(trunk[i], stub, 40, 150); err != nil {
				return nil, err
			}
		}
	}

	g, err := b.Freeze()
	if err != nil {
		return nil, err
	}
	return network.WithEstimatedCapacity(g)
}
