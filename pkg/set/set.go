package set

import (
	"fmt"
	"sort"
	"strings"
)

// Set is an unordered collection of unique values.
type Set[T comparable] map[T]struct{}

func Of[T comparable](vs ...T) Set[T] {
	s := make(Set[T], len(vs))
	s.Add(vs...)
	return s
}

func (s Set[T]) Add(vs ...T) {
	for _, v := range vs {
		s[v] = struct{}{}
	}
}

func (s Set[T]) AddFrom(other Set[T]) {
	for k := range other {
		s[k] = struct{}{}
	}
}

func (s Set[T]) Remove(v T) bool {
	_, ok := s[v]
	delete(s, v)
	return ok
}

func (s Set[T]) Contains(v T) bool {
	_, ok := s[v]
	return ok
}

func (s Set[T]) Len() int {
	return len(s)
}

func (s Set[T]) ToSlice() []T {
	slice := make([]T, 0, len(s))
	for k := range s {
		slice = append(slice, k)
	}
	return slice
}

// Sorted returns the members ordered by less, for output that must be deterministic.
func (s Set[T]) Sorted(less func(a, b T) bool) []T {
	slice := s.ToSlice()
	sort.Slice(slice, func(i, j int) bool {
		return less(slice[i], slice[j])
	})
	return slice
}

func (s Set[T]) Difference(other Set[T]) Set[T] {
	diff := make(Set[T])
	for k := range s {
		if !other.Contains(k) {
			diff.Add(k)
		}
	}
	return diff
}

func (s Set[T]) String() string {
	sb := new(strings.Builder)
	sb.WriteString("{")
	for i, k := range s.ToSlice() {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(sb, "%v", k)
	}
	sb.WriteString("}")
	return sb.String()
}
