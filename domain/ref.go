package domain

import (
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Ref identifies a project or task. Server-confirmed records carry a
// positive numeric ID; optimistic records carry a client-generated
// correlation token instead, until the server response replaces them.
type Ref struct {
	ID   int64
	Temp string
}

// NumRef returns a reference to a server-confirmed record.
func NumRef(id int64) Ref { return Ref{ID: id} }

// NewTempRef generates a correlation token for an optimistic record.
// The prefix distinguishes entity kinds in logs ("tmp-" / "tmp-task-").
func NewTempRef(prefix string) Ref {
	return Ref{Temp: prefix + uuid.NewString()}
}

// Confirmed reports whether the reference points at a server-assigned record.
func (r Ref) Confirmed() bool { return r.Temp == "" && r.ID > 0 }

// IsZero reports whether the reference points at nothing.
func (r Ref) IsZero() bool { return r.Temp == "" && r.ID == 0 }

func (r Ref) Equal(o Ref) bool { return r.ID == o.ID && r.Temp == o.Temp }

func (r Ref) String() string {
	if r.Temp != "" {
		return r.Temp
	}
	return strconv.FormatInt(r.ID, 10)
}

// ParseRef reads a reference from its path/string form: a decimal server
// ID or a "tmp-" correlation token.
func ParseRef(s string) (Ref, bool) {
	if strings.HasPrefix(s, "tmp-") {
		return Ref{Temp: s}, true
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return Ref{}, false
	}
	return Ref{ID: id}, true
}

// MarshalJSON keeps the original API shape: numeric IDs serialize as
// numbers, correlation tokens as strings.
func (r Ref) MarshalJSON() ([]byte, error) {
	if r.Temp != "" {
		return []byte(strconv.Quote(r.Temp)), nil
	}
	return []byte(strconv.FormatInt(r.ID, 10)), nil
}

func (r *Ref) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		r.ID, r.Temp = 0, ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		s, err := strconv.Unquote(string(data))
		if err != nil {
			return err
		}
		r.ID, r.Temp = 0, s
		return nil
	}
	id, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return err
	}
	r.ID, r.Temp = id, ""
	return nil
}
