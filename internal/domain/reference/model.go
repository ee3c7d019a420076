package reference

// Country is keyed by ISO code.
type Country struct {
	Code string
	Name string
	Flag string
}

// Timezone is upstream reference data, keyed by name.
type Timezone struct {
	Name string
}
