package domain

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Group 是输出的粗粒度类群标签。
type Group string

const (
	GroupDiatom         Group = "Diatom"
	GroupDinoflagellate Group = "Dinoflagellate"
	GroupHaptophyte     Group = "Haptophyte"
	GroupOther          Group = "Other"
)

// GroupForPhylum 是固定的门 -> 类群映射；未知或缺失的门一律归为 Other。
func GroupForPhylum(phylum string) Group {
	switch phylum {
	case "Haptophyta":
		return GroupHaptophyte
	case "Ochrophyta":
		return GroupDiatom
	case "Myzozoa":
		return GroupDinoflagellate
	default:
		return GroupOther
	}
}

// Assignment 是“属名 -> 类群”的单条映射。
// 对外编码为只有一个键的对象，例如 {"Thalassiosira":"Diatom"}。
type Assignment struct {
	Genus Genus
	Group Group
}

func (a Assignment) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[Genus]Group{a.Genus: a.Group})
}

func (a *Assignment) UnmarshalJSON(b []byte) error {
	var m map[Genus]Group
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	return a.fromMap(m)
}

func (a Assignment) MarshalYAML() (any, error) {
	return map[Genus]Group{a.Genus: a.Group}, nil
}

func (a *Assignment) UnmarshalYAML(n *yaml.Node) error {
	var m map[Genus]Group
	if err := n.Decode(&m); err != nil {
		return err
	}
	return a.fromMap(m)
}

func (a *Assignment) fromMap(m map[Genus]Group) error {
	if len(m) != 1 {
		return fmt.Errorf("assignment 必须只有一个键，实际 %d 个", len(m))
	}
	for g, grp := range m {
		a.Genus, a.Group = g, grp
	}
	return nil
}
