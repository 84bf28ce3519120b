package common

type IT interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64
}

type IIndex interface {
	~int | ~int8 | ~int16 | ~int32 | ~uint | ~uint8 | ~uint16 | ~uint32
}

// GetVert3 returns the xyz triple stored at index in a flat vertex slice.
func GetVert3[T IT, T1 IIndex](verts []T, index T1) []T {
	return verts[index*3 : index*3+3]
}

// Next returns the index after i in a ring of n items.
func Next(i, n int) int {
	if i+1 < n {
		return i + 1
	}
	return 0
}

// Prev returns the index before i in a ring of n items.
func Prev(i, n int) int {
	if i-1 >= 0 {
		return i - 1
	}
	return n - 1
}
