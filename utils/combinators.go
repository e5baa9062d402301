// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package utils

// MapErr applies [f] to every element of [a], stopping at the first error.
func MapErr[T any, R any](f func(T) (R, error), a []T) ([]R, error) {
	b := make([]R, len(a))
	for i, v := range a {
		r, err := f(v)
		if err != nil {
			return nil, err
		}
		b[i] = r
	}
	return b, nil
}
