package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/marisusis/eclipse.marisusis.me/internal/domain"
)

var ErrInvalidNodes = errors.New("invalid node list")

// NodesFile is the on-disk node list:
//
//	nodes:
//	  - node_id: ET1002
//	    location: Lab
//	    data_endpoint: http://et1002.local/last
type NodesFile struct {
	Nodes []domain.NodeConfig `yaml:"nodes"`
}

// LoadNodes reads and validates a YAML node list
func LoadNodes(path string) ([]domain.NodeConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read node list: %w", err)
	}
	return ParseNodes(raw)
}

// ParseNodes decodes a node list, normalizing ids and rejecting duplicates
func ParseNodes(raw []byte) ([]domain.NodeConfig, error) {
	var file NodesFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidNodes, err)
	}

	seen := make(map[string]struct{}, len(file.Nodes))
	for i := range file.Nodes {
		node := &file.Nodes[i]
		node.NodeID = domain.NormalizeNodeID(node.NodeID)
		if node.NodeID == "" {
			return nil, fmt.Errorf("%w: entry %d has no node_id", ErrInvalidNodes, i)
		}
		if _, dup := seen[node.NodeID]; dup {
			return nil, fmt.Errorf("%w: duplicate node_id %s", ErrInvalidNodes, node.NodeID)
		}
		seen[node.NodeID] = struct{}{}
	}
	return file.Nodes, nil
}

// RequireDataEndpoints checks that every node can be polled upstream
func RequireDataEndpoints(nodes []domain.NodeConfig) error {
	for _, node := range nodes {
		if node.DataEndpoint == "" {
			return fmt.Errorf("%w: node %s has no data_endpoint", ErrInvalidNodes, node.NodeID)
		}
	}
	return nil
}

// Descriptors converts node entries into panel descriptors, keeping order
func Descriptors(nodes []domain.NodeConfig) []domain.NodeDescriptor {
	out := make([]domain.NodeDescriptor, 0, len(nodes))
	for _, node := range nodes {
		out = append(out, node.Descriptor())
	}
	return out
}
