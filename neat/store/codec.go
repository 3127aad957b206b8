package store

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/baldhumanity/neatevo/neat"
)

// CurrentSchemaVersion identifies the archive record layout. Bump it when
// the dump format changes incompatibly.
const CurrentSchemaVersion = 1

// GenomeDump is the portable, JSON-friendly form of a genome. Roles and
// activations are stored by name so archives stay readable and survive
// enum reordering.
type GenomeDump struct {
	SchemaVersion int        `json:"schema_version"`
	Key           int        `json:"key"`
	Fitness       float64    `json:"fitness"`
	Nodes         []NodeDump `json:"nodes"`
	Connections   []ConnDump `json:"connections"`
}

type NodeDump struct {
	ID         int    `json:"id"`
	Role       string `json:"role"`
	Activation string `json:"activation"`
}

type ConnDump struct {
	Innovation int     `json:"innovation"`
	In         int     `json:"in"`
	Out        int     `json:"out"`
	Weight     float64 `json:"weight"`
	Enabled    bool    `json:"enabled"`
}

// DumpGenome converts a genome into its archive form. Nodes and
// connections are ordered by id and innovation number so dumps of the
// same genome are byte-identical.
func DumpGenome(g *neat.Genome) GenomeDump {
	d := GenomeDump{
		SchemaVersion: CurrentSchemaVersion,
		Key:           g.Key,
		Fitness:       g.Fitness,
	}
	for _, id := range sortedKeys(g.Nodes) {
		ng := g.Nodes[id]
		d.Nodes = append(d.Nodes, NodeDump{
			ID:         ng.ID,
			Role:       ng.Role.String(),
			Activation: ng.Activation.String(),
		})
	}
	for _, innov := range sortedKeys(g.Connections) {
		cg := g.Connections[innov]
		d.Connections = append(d.Connections, ConnDump{
			Innovation: cg.Innovation,
			In:         cg.In,
			Out:        cg.Out,
			Weight:     cg.Weight,
			Enabled:    cg.Enabled,
		})
	}
	return d
}

// RestoreGenome rebuilds a genome from its archive form.
func RestoreGenome(d GenomeDump) (*neat.Genome, error) {
	if d.SchemaVersion != CurrentSchemaVersion {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrVersionMismatch, d.SchemaVersion, CurrentSchemaVersion)
	}

	g := neat.NewGenome(d.Key)
	g.Fitness = d.Fitness
	for _, nd := range d.Nodes {
		role, err := parseRole(nd.Role)
		if err != nil {
			return nil, fmt.Errorf("node %d: %w", nd.ID, err)
		}
		act, err := neat.ParseActivation(nd.Activation)
		if err != nil {
			return nil, fmt.Errorf("node %d: %w", nd.ID, err)
		}
		g.AddNode(nd.ID, role, act)
	}
	for _, cd := range d.Connections {
		if _, ok := g.Nodes[cd.In]; !ok {
			return nil, fmt.Errorf("connection %d references unknown node %d", cd.Innovation, cd.In)
		}
		if _, ok := g.Nodes[cd.Out]; !ok {
			return nil, fmt.Errorf("connection %d references unknown node %d", cd.Innovation, cd.Out)
		}
		g.Connections[cd.Innovation] = &neat.ConnectionGene{
			Innovation: cd.Innovation,
			In:         cd.In,
			Out:        cd.Out,
			Weight:     cd.Weight,
			Enabled:    cd.Enabled,
		}
	}
	return g, nil
}

// EncodeRegistry serializes an innovation registry snapshot so a restored
// genome can keep mutating with consistent innovation numbering.
func EncodeRegistry(snap neat.RegistrySnapshot) ([]byte, error) {
	return json.Marshal(snap)
}

// DecodeRegistry is the inverse of EncodeRegistry.
func DecodeRegistry(data []byte) (neat.RegistrySnapshot, error) {
	var snap neat.RegistrySnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return neat.RegistrySnapshot{}, err
	}
	return snap, nil
}

func encodeDump(d GenomeDump) ([]byte, error) {
	return json.Marshal(d)
}

func decodeDump(data []byte) (GenomeDump, error) {
	var d GenomeDump
	if err := json.Unmarshal(data, &d); err != nil {
		return GenomeDump{}, err
	}
	return d, nil
}

func parseRole(name string) (neat.NodeRole, error) {
	switch name {
	case "input":
		return neat.RoleInput, nil
	case "bias":
		return neat.RoleBias, nil
	case "hidden":
		return neat.RoleHidden, nil
	case "output":
		return neat.RoleOutput, nil
	default:
		return 0, fmt.Errorf("unknown node role %q", name)
	}
}

func sortedKeys[V any](m map[int]V) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
