package parser

import (
	"testing"

	"github.com/nathoo/scriptcore/types"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  types.Intent
	}{
		// Empty / whitespace
		{
			name:  "empty string",
			input: "",
			want:  types.Intent{},
		},
		{
			name:  "whitespace only",
			input: "   ",
			want:  types.Intent{},
		},

		// Bare verbs
		{
			name:  "look → lookat",
			input: "look",
			want:  types.Intent{Verb: LookAt},
		},
		{
			name:  "l → lookat",
			input: "l",
			want:  types.Intent{Verb: LookAt},
		},

		// Verb aliases
		{
			name:  "discard → drop",
			input: "discard the coin",
			want:  types.Intent{Verb: Drop, Object: "coin"},
		},
		{
			name:  "x door → lookat door",
			input: "x door",
			want:  types.Intent{Verb: LookAt, Object: "door"},
		},
		{
			name:  "examine painting",
			input: "examine painting",
			want:  types.Intent{Verb: LookAt, Object: "painting"},
		},
		{
			name:  "get key → pickup key",
			input: "get key",
			want:  types.Intent{Verb: PickUp, Object: "key"},
		},
		{
			name:  "unlock door → open door",
			input: "unlock door",
			want:  types.Intent{Verb: Open, Object: "door"},
		},
		{
			name:  "shut door → close door",
			input: "shut door",
			want:  types.Intent{Verb: Close, Object: "door"},
		},
		{
			name:  "press button → push button",
			input: "press button",
			want:  types.Intent{Verb: Push, Object: "button"},
		},
		{
			name:  "exit → leave",
			input: "exit door",
			want:  types.Intent{Verb: Leave, Object: "door"},
		},

		// Multi-word verbs
		{
			name:  "look at door",
			input: "look at door",
			want:  types.Intent{Verb: LookAt, Object: "door"},
		},
		{
			name:  "look under rug",
			input: "look under rug",
			want:  types.Intent{Verb: LookAt, Object: "rug"},
		},
		{
			name:  "pick up the key",
			input: "pick up the key",
			want:  types.Intent{Verb: PickUp, Object: "key"},
		},
		{
			name:  "talk to guard",
			input: "talk to guard",
			want:  types.Intent{Verb: TalkTo, Object: "guard"},
		},
		{
			name:  "speak with guard",
			input: "speak with guard",
			want:  types.Intent{Verb: TalkTo, Object: "guard"},
		},
		{
			name:  "talk guard (no preposition)",
			input: "talk guard",
			want:  types.Intent{Verb: TalkTo, Object: "guard"},
		},
		{
			name:  "go to door → leave door",
			input: "go to door",
			want:  types.Intent{Verb: Leave, Object: "door"},
		},
		{
			name:  "walk through arch → leave arch",
			input: "walk through the arch",
			want:  types.Intent{Verb: Leave, Object: "arch"},
		},

		// Object and target
		{
			name:  "use key on door",
			input: "use key on door",
			want:  types.Intent{Verb: Use, Object: "key", Target: "door"},
		},
		{
			name:  "use the key with the door",
			input: "use the key with the door",
			want:  types.Intent{Verb: Use, Object: "key", Target: "door"},
		},
		{
			name:  "put coin into slot → use coin slot",
			input: "put coin into slot",
			want:  types.Intent{Verb: Use, Object: "coin", Target: "slot"},
		},
		{
			name:  "give bread to guard",
			input: "give bread to guard",
			want:  types.Intent{Verb: Give, Object: "bread", Target: "guard"},
		},
		{
			name:  "multi-word object",
			input: "look at old painting",
			want:  types.Intent{Verb: LookAt, Object: "old painting"},
		},

		// Case insensitivity
		{
			name:  "LOOK AT PAINTING",
			input: "LOOK AT PAINTING",
			want:  types.Intent{Verb: LookAt, Object: "painting"},
		},
		{
			name:  "Open Door",
			input: "Open Door",
			want:  types.Intent{Verb: Open, Object: "door"},
		},

		// Unknown verb passes through
		{
			name:  "unknown verb",
			input: "dance",
			want:  types.Intent{Verb: "dance"},
		},
		{
			name:  "unknown verb with object",
			input: "kick bucket",
			want:  types.Intent{Verb: "kick", Object: "bucket"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.input)
			if got != tt.want {
				t.Errorf("Parse(%q) = %+v, want %+v", tt.input, got, tt.want)
			}
		})
	}
}
