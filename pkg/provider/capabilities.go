package provider

// Capabilities describes optional listing behaviors of a Source.
//
// The browser adapts its algorithm to them; the zero value describes a plain
// hierarchical backend listed one level at a time with client-side prefix
// filtering.
type Capabilities struct {
	// ServerSidePrefix means the fetcher filters leaf file names by
	// PageRequest.Prefix and never hides folders.
	ServerSidePrefix bool

	// FlatRecursive means a PageRequest with Recursive set returns the whole
	// subtree as a flat sequence of records without per-level folder
	// markers. Intermediate folders are then synthesized by the browser.
	FlatRecursive bool
}
