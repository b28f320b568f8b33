// Package units converts storage quantities into comparable units.
//
// Thresholds in configuration are written for humans ("0.25 GB", "500MiB"),
// while the operating system reports free space as a raw byte count. This
// package parses the former and converts the latter so the safety checks
// compare like with like.
//
// Decimal prefixes follow SI (1 GB = 1e9 bytes), matching how the unit
// software has always reported disk space.
//
// Usage:
//
//	required, err := units.ParseBytes("0.25 GB")
//	ok := units.Gigabytes(free) >= units.Gigabytes(required)
package units
