package notify

import "testing"

func TestRelay(t *testing.T) {
	tests := []struct {
		name     string
		posts    []string
		expected string
		ok       bool
	}{
		{
			name:     "Nothing posted",
			posts:    nil,
			expected: "",
			ok:       false,
		},
		{
			name:     "Single post",
			posts:    []string{"User not found"},
			expected: "User not found",
			ok:       true,
		},
		{
			name:     "Newest overwrites unconsumed",
			posts:    []string{"first", "second"},
			expected: "second",
			ok:       true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRelay()
			for _, p := range tt.posts {
				r.Post(p)
			}
			msg, ok := r.Take()
			if msg != tt.expected || ok != tt.ok {
				t.Errorf("Take() = (%q, %v); want (%q, %v)", msg, ok, tt.expected, tt.ok)
			}
		})
	}
}

func TestRelayConsumeOnce(t *testing.T) {
	r := NewRelay()
	r.Post("Chat already exists")
	if _, ok := r.Take(); !ok {
		t.Fatal("first Take() reported no notification")
	}
	if msg, ok := r.Take(); ok {
		t.Errorf("second Take() = (%q, true); want consumed", msg)
	}
}
