// Package modules discovers the units shown by the toolbox host.
//
// A unit is a small definition file in the units directory that selects a
// panel type from a compiled-in Catalog. Scanning never executes code from
// disk: the file only names which built-in constructor to use.
//
// Scan results are ordered regular units first, then host-aware units,
// each group alphabetical by identifier.
package modules
