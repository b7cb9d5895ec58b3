// README: Request status catalog and the transition table. Ids are stable and
// match the rows seeded into request_statuses.
package status

import (
	"fmt"
	"strings"

	"gohappygo/internal/types"
)

type Status int16

const (
	None        Status = 0
	Negotiating Status = 1
	Accepted    Status = 2
	Completed   Status = 3
	Rejected    Status = 4
	Cancelled   Status = 5
	// Delivered is written by the delivery-tracking flow, never by this core.
	// Guards still have to honour it.
	Delivered Status = 6
)

var names = map[Status]string{
	Negotiating: "NEGOTIATING",
	Accepted:    "ACCEPTED",
	Completed:   "COMPLETED",
	Rejected:    "REJECTED",
	Cancelled:   "CANCELLED",
	Delivered:   "DELIVERED",
}

var (
	ErrUnknown = types.NewError(types.ErrValidation, "unknown request status")
)

func (s Status) String() string {
	if n, ok := names[s]; ok {
		return n
	}
	return fmt.Sprintf("STATUS(%d)", int16(s))
}

func (s Status) Valid() bool {
	_, ok := names[s]
	return ok
}

func Parse(name string) (Status, error) {
	up := strings.ToUpper(strings.TrimSpace(name))
	for s, n := range names {
		if n == up {
			return s, nil
		}
	}
	return None, fmt.Errorf("%w: %q", ErrUnknown, name)
}

func (s Status) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknown, int16(s))
	}
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(b []byte) error {
	v, err := Parse(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// AllowedTransitions is the request lifecycle as code. None is the state of a
// request that does not exist yet.
var AllowedTransitions = map[Status][]Status{
	None:        {Negotiating, Accepted},
	Negotiating: {Accepted, Rejected, Cancelled},
	Accepted:    {Completed, Cancelled},
}

func CanTransition(from, to Status) bool {
	for _, s := range AllowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func IsTerminal(s Status) bool {
	switch s {
	case Completed, Rejected, Cancelled, Delivered:
		return true
	}
	return false
}

// Set is an immutable list of statuses used by the listing guards.
type Set []Status

func (set Set) Contains(s Status) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}

func (set Set) IDs() []int16 {
	out := make([]int16, len(set))
	for i, s := range set {
		out[i] = int16(s)
	}
	return out
}

var (
	UpdateBlocking = Set{Accepted, Completed, Delivered}
	DeleteBlocking = Set{Accepted, Completed, Delivered, Negotiating}
)
