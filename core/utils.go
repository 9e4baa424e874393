package core

import (
	"reflect"

	"github.com/encodeous/moss/state"
)

func AddCost(a uint32, b uint16) uint32 {
	if a > state.INFM-uint32(b) {
		return state.INFM
	}
	return a + uint32(b)
}

func Get[T state.NyModule](s *state.State) T {
	t := reflect.TypeFor[T]()
	return s.Modules[t.String()].(T)
}
