package pipeline

import "reelmill/internal/artifacts"

// SetRemoveSetForTests overrides artifact set removal during tests.
func SetRemoveSetForTests(fn func(root string, set artifacts.Set) error) func() {
	previous := removeSet
	removeSet = fn
	return func() {
		removeSet = previous
	}
}
