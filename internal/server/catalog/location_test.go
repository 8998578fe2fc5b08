package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLocation_ChildAndParent(t *testing.T) {
	root := DepartmentRoot(10)
	assert.Equal(t, 0, root.Depth())

	leaf := root.Child("Tools").Child("Hand").Child("Hammers")
	assert.Equal(t, "Tools/Hand/Hammers", leaf.Path)
	assert.Equal(t, []string{"Tools", "Hand", "Hammers"}, leaf.Segments())
	assert.Equal(t, 3, leaf.Depth())

	assert.Equal(t, Location{Department: 10, Path: "Tools/Hand"}, leaf.Parent())
	assert.Equal(t, root, root.Child("Tools").Parent())
	assert.Equal(t, TopLevel(), root.Parent())
	assert.Equal(t, TopLevel(), TopLevel().Parent())
	assert.Equal(t, TopLevel(), TopLevel().Child("x"))
}

func TestChildSegments(t *testing.T) {
	paths := []string{
		"Tools/Hand/Hammers",
		"Tools/Hand/Saws",
		"Tools/Power",
		"Tools",
		"Garden/Hoses",
		"Toolsets/Kits",
	}

	tests := []struct {
		name   string
		prefix string
		want   []string
	}{
		{"root", "", []string{"Garden", "Tools", "Toolsets"}},
		{"depth one", "Tools", []string{"Hand", "Power"}},
		{"depth two", "Tools/Hand", []string{"Hammers", "Saws"}},
		{"leaf", "Tools/Power", []string{}},
		{"unknown", "Paint", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ChildSegments(tt.prefix, paths))
		})
	}
}
