package core

import (
	"testing"
)

func TestIDFromContent(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		wantSame bool
	}{
		{
			name:     "same content produces same ID",
			content:  "test content",
			wantSame: true,
		},
		{
			name:     "empty string",
			content:  "",
			wantSame: true,
		},
		{
			name:     "long content",
			content:  "This is a much longer piece of content that should still hash consistently",
			wantSame: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id1 := IDFromContent(tt.content)
			id2 := IDFromContent(tt.content)

			if tt.wantSame && id1 != id2 {
				t.Errorf("IDFromContent() produced different IDs for same content: %d vs %d", id1, id2)
			}
		})
	}
}

func TestChunkIDIsSpaceScoped(t *testing.T) {
	a := ChunkID("space-a", "photosynthesis converts light")
	b := ChunkID("space-b", "photosynthesis converts light")
	if a == b {
		t.Errorf("ChunkID() collided across spaces: %s", a)
	}
	if a != ChunkID("space-a", "photosynthesis converts light") {
		t.Errorf("ChunkID() is not stable")
	}
}

func TestIDString(t *testing.T) {
	if got := ID(0xabc).String(); got != "0000000000000abc" {
		t.Errorf("String() = %q", got)
	}
	if got := ChunkID("s", "t").String(); len(got) != 16 {
		t.Errorf("String() length = %d, want 16", len(got))
	}
}

func TestFragmentIsEmpty(t *testing.T) {
	if !(Fragment{}).IsEmpty() {
		t.Error("zero fragment should be empty")
	}
	if (Fragment{Concepts: []string{"cell"}}).IsEmpty() {
		t.Error("fragment with a concept should not be empty")
	}
}

func TestStatus(t *testing.T) {
	tests := []struct {
		a, b Status
		want Status
	}{
		{StatusOK, StatusOK, StatusOK},
		{StatusOK, StatusDegraded, StatusDegraded},
		{StatusFailed, StatusDegraded, StatusFailed},
	}
	for _, tt := range tests {
		if got := tt.a.Worst(tt.b); got != tt.want {
			t.Errorf("%s.Worst(%s) = %s, want %s", tt.a, tt.b, got, tt.want)
		}
	}
	if StatusDegraded.String() != "degraded" {
		t.Errorf("String() = %q", StatusDegraded.String())
	}
}
