// Package license runs the local oslili detector over a source directory and
// folds its verdict into ranked matches.
//
// An unlicensed match takes the detector's primary license once detector
// confidence exceeds the primary threshold. A provider-reported license is
// replaced only above the override threshold.
package license
