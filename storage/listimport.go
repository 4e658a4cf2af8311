package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// listDocument is the structured form accepted by ImportListItems for YAML
// and JSON files. A bare sequence of strings is accepted as well.
type listDocument struct {
	Template string   `yaml:"template" json:"template"`
	Items    []string `yaml:"items" json:"items"`
}

// ImportedList is the result of ImportListItems.
type ImportedList struct {
	Items    []string
	Template string
}

// ImportListItems reads list items from path. .yaml, .yml and .json files
// hold either a sequence of strings or a mapping with items and an optional
// template; any other file is read as one item per line. Items are trimmed
// and blank ones dropped.
func ImportListItems(path string) (ImportedList, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ImportedList{}, fmt.Errorf("failed to read list file: %w", err)
	}
	return ParseListItems(filepath.Ext(path), data)
}

// ParseListItems parses data according to the file extension ext.
func ParseListItems(ext string, data []byte) (ImportedList, error) {
	var doc listDocument
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		var node yaml.Node
		if err := yaml.Unmarshal(data, &node); err != nil {
			return ImportedList{}, fmt.Errorf("failed to parse yaml list: %w", err)
		}
		if len(node.Content) > 0 {
			root := node.Content[0]
			var target any = &doc
			if root.Kind == yaml.SequenceNode {
				target = &doc.Items
			}
			if err := root.Decode(target); err != nil {
				return ImportedList{}, fmt.Errorf("failed to parse yaml list: %w", err)
			}
		}
	case ".json":
		trimmed := strings.TrimSpace(string(data))
		if strings.HasPrefix(trimmed, "[") {
			if err := json.Unmarshal(data, &doc.Items); err != nil {
				return ImportedList{}, fmt.Errorf("failed to parse json list: %w", err)
			}
		} else if err := json.Unmarshal(data, &doc); err != nil {
			return ImportedList{}, fmt.Errorf("failed to parse json list: %w", err)
		}
	default:
		doc.Items = strings.Split(string(data), "\n")
	}

	items := make([]string, 0, len(doc.Items))
	for _, item := range doc.Items {
		item = strings.TrimSpace(item)
		if item != "" {
			items = append(items, item)
		}
	}
	return ImportedList{Items: items, Template: strings.TrimSpace(doc.Template)}, nil
}
