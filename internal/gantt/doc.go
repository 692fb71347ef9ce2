// Package gantt is the scheduling core behind the chart: it turns a snapshot
// of tasks and links into ordered, date-normalized, tagged chart rows.
//
// The pipeline for one request is
//
//	Normalize -> visibility filter -> BuildHierarchy -> ApplyBlocking
//
// with MapDependencies supplying the arrows. Every function here is pure and
// total over its input: bad records are skipped, never fatal, and the same
// snapshot always yields the same rows.
package gantt
