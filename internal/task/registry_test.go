package task

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noop(context.Context, *TaskContext, any) (any, error) { return nil, nil }

type personArgs struct {
	Name string `json:"name" validate:"required"`
	Age  int    `json:"age"`
}

func TestBuilderRegister(t *testing.T) {
	tests := []struct {
		name    string
		defs    []Definition
		wantErr error
	}{
		{
			name: "distinct names",
			defs: []Definition{{Name: "a", Handler: noop}, {Name: "b", Handler: noop}},
		},
		{
			name:    "duplicate name",
			defs:    []Definition{{Name: "a", Handler: noop}, {Name: "a", Handler: noop}},
			wantErr: ErrAlreadyRegistered,
		},
		{
			name:    "empty name",
			defs:    []Definition{{Handler: noop}},
			wantErr: ErrInvalidDefinition,
		},
		{
			name:    "nil handler",
			defs:    []Definition{{Name: "a"}},
			wantErr: ErrInvalidDefinition,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			b := NewBuilder()
			var err error
			for _, def := range tc.defs {
				if err = b.Register(def); err != nil {
					break
				}
			}
			if tc.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestDiscoverStopsOnDuplicateAcrossGroups(t *testing.T) {
	first := GroupFunc(func() []Definition { return []Definition{{Name: "task1", Handler: noop}} })
	second := GroupFunc(func() []Definition { return []Definition{{Name: "task1", Handler: noop}} })

	_, err := NewRegistry(first, second)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAlreadyRegistered))
}

func TestRegistryResolve(t *testing.T) {
	reg := newTestRegistry(t, Definition{Name: "task1", Handler: noop})

	got, err := reg.Resolve("task1")
	require.NoError(t, err)
	assert.Equal(t, "task1", got.Name)
	assert.NotNil(t, got.Handler)

	_, err = reg.Resolve("nope")
	require.ErrorIs(t, err, ErrNotFound)
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, KindTaskName, nf.Kind)
	assert.Equal(t, "nope", nf.Key)
}

func TestListTaskFunctions(t *testing.T) {
	reg := newTestRegistry(t,
		Definition{Name: "task2_with_args", Handler: noop, Schema: NewStructSchema[personArgs]()},
		Definition{Name: "task1", Doc: "\n  Runs the first demo.\nMore detail.", Handler: noop},
	)

	want := []FunctionInfo{
		{
			Name:        "task1",
			DisplayName: "Runs the first demo.",
			Description: "Runs the first demo.\nMore detail.",
		},
		{
			Name:        "task2_with_args",
			DisplayName: "Task2 With Args",
			Arguments: []FieldInfo{
				{Name: "name", Type: "string", Required: true},
				{Name: "age", Type: "integer"},
			},
		},
	}
	if diff := cmp.Diff(want, reg.ListTaskFunctions()); diff != "" {
		t.Errorf("ListTaskFunctions() mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 2, reg.Len())
}

func TestListTaskFunctionsReturnsCopy(t *testing.T) {
	reg := newTestRegistry(t, Definition{Name: "task1", Handler: noop})

	listing := reg.ListTaskFunctions()
	listing[0].Name = "mutated"

	assert.Equal(t, "task1", reg.ListTaskFunctions()[0].Name)
}

func TestDisplayName(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"failing_task", "", "Failing Task"},
		{"count-down", "", "Count Down"},
		{"task1", "Doc line.", "Doc line."},
		{"task1", "  Progress Demo  \nDetail.", "Progress Demo"},
		{"task1", "   \n\n", "Task1"},
	}
	for _, tc := range tests {
		t.Run(tc.name+"/"+tc.want, func(t *testing.T) {
			assert.Equal(t, tc.want, displayName(tc.name, tc.doc))
		})
	}
}
