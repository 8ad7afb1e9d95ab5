package ordering

import "testing"

func TestStatusCanTransitionTo(t *testing.T) {
	// The machine is a total function, so enumerate the legal edges and
	// check every (current, requested) pair against them.
	legal := map[Status][]Status{
		StatusPending:   {StatusAccepted, StatusRejected, StatusCancelled},
		StatusAccepted:  {StatusPreparing},
		StatusPreparing: {StatusReady},
		StatusReady:     {StatusPickedUp},
		StatusPickedUp:  {},
		StatusRejected:  {},
		StatusCancelled: {},
	}

	for _, current := range All {
		for _, requested := range All {
			want := false
			for _, allowed := range legal[current] {
				if allowed == requested {
					want = true
				}
			}
			if got := current.CanTransitionTo(requested); got != want {
				t.Errorf("CanTransitionTo(%s -> %s) = %v, want %v", current, requested, got, want)
			}
		}
	}
}

func TestStatusTerminal(t *testing.T) {
	tests := []struct {
		status Status
		want   bool
	}{
		{StatusPending, false},
		{StatusAccepted, false},
		{StatusPreparing, false},
		{StatusReady, false},
		{StatusPickedUp, true},
		{StatusRejected, true},
		{StatusCancelled, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			if got := tt.status.Terminal(); got != tt.want {
				t.Errorf("Terminal() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStatusAllowedNextIsACopy(t *testing.T) {
	allowed := StatusPending.AllowedNext()
	if len(allowed) != 3 {
		t.Fatalf("AllowedNext(pending) length = %d, want 3", len(allowed))
	}

	allowed[0] = StatusPickedUp
	again := StatusPending.AllowedNext()
	if again[0] != StatusAccepted {
		t.Error("AllowedNext() should return a copy, not the backing table")
	}
}

func TestParseStatus(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Status
		known bool
	}{
		{name: "pending", input: "pending", want: StatusPending, known: true},
		{name: "pickedUp", input: "picked_up", want: StatusPickedUp, known: true},
		{name: "unknown", input: "delivered", known: false},
		{name: "empty", input: "", known: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, known := ParseStatus(tt.input)
			if known != tt.known {
				t.Fatalf("ParseStatus(%q) known = %v, want %v", tt.input, known, tt.known)
			}
			if known && got != tt.want {
				t.Errorf("ParseStatus(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}
