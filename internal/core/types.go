// Package core provides shared types and errors for the explorer packages.
package core

// Package is a package name published to a registry and its release count.
type Package struct {
	Name         string
	ReleaseCount int
}

// Release is one released version of a package and the URI of its manifest.
type Release struct {
	Version     string
	ManifestURI string
}
