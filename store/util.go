package store

import (
	"fmt"
	"sort"
)

func sortStrings(s []string) { sort.Strings(s) }

func errInvalidCheckpoint(id int) error {
	return fmt.Errorf("store: invalid checkpoint id %d", id)
}
