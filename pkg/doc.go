// Package pkg provides the core libraries for imgstack image stitching.
//
// # Overview
//
// imgstack takes a batch of images, lets the user put them in order and
// stacks them top to bottom at one common width. The pkg directory is
// organized into three areas:
//
//  1. Domain logic (assets, ordering, reordering, compositing, export)
//  2. Infrastructure (caching, HTTP fetching, configuration, hooks)
//  3. Orchestration (sessions and the batch pipeline)
//
// # Architecture
//
// The typical data flow through imgstack:
//
//	Files / URLs / uploads
//	         ↓
//	    [asset] package (read + decode, all-or-nothing batches)
//	         ↓
//	    [collection] package (ordered, versioned list of assets)
//	         ↑
//	    [reorder] package (drag gestures and explicit up/down moves)
//	         ↓
//	    [compositor] package (uniform width, vertical stack)
//	         ↓
//	    [export] package (JPEG or PNG)
//
// # Quick Start
//
// Stitch three files into a PNG:
//
//	import (
//	    "context"
//	    "github.com/matzehuels/imgstack/pkg/pipeline"
//	)
//
//	runner := pipeline.NewRunner(nil, nil, nil)
//	result, err := runner.Execute(context.Background(), pipeline.Options{
//	    Sources: []string{"top.png", "middle.jpg", "bottom.webp"},
//	    Format:  "png",
//	})
//	// result.Artifact holds the encoded image, result.Filename its name.
//
// # Main Packages
//
// ## Domain Logic
//
// [asset] - Decoded images with identity, display name and accent colour.
// The [asset.Loader] decodes a batch concurrently and fails it as a whole.
//
// [collection] - The ordered set of loaded assets. Every mutation bumps a
// version that downstream caches key on.
//
// [reorder] - A drag state machine plus explicit moves. Pointer and touch
// events are translated against a list [reorder.Geometry].
//
// [compositor] - Scales every image to the narrowest or widest intrinsic
// width and stacks them without gaps.
//
// [export] - Encodes a composite and derives output filenames.
//
// ## Infrastructure
//
// [cache] - Byte caches (file, Redis, null) and key derivation for
// downloaded sources, thumbnails and composites.
//
// [httputil] - HTTP client construction, status classification and retry.
//
// [config] - TOML configuration with environment overrides.
//
// [observability] - Hook registry for load, cache and HTTP events.
//
// [viewport] - Narrow/wide presentation wording.
//
// [errors] - Coded errors shared across packages.
//
// ## Orchestration
//
// [session] - One user's collection, controller, policy and cached
// composite. Used by the CLI, the terminal UI and the HTTP server.
//
// [pipeline] - The load → order → composite → encode run used by the
// stitch command.
//
// # Testing
//
//	go test ./pkg/...
//
// [asset]: https://pkg.go.dev/github.com/matzehuels/imgstack/pkg/asset
// [collection]: https://pkg.go.dev/github.com/matzehuels/imgstack/pkg/collection
// [reorder]: https://pkg.go.dev/github.com/matzehuels/imgstack/pkg/reorder
// [compositor]: https://pkg.go.dev/github.com/matzehuels/imgstack/pkg/compositor
// [export]: https://pkg.go.dev/github.com/matzehuels/imgstack/pkg/export
// [cache]: https://pkg.go.dev/github.com/matzehuels/imgstack/pkg/cache
// [httputil]: https://pkg.go.dev/github.com/matzehuels/imgstack/pkg/httputil
// [config]: https://pkg.go.dev/github.com/matzehuels/imgstack/pkg/config
// [observability]: https://pkg.go.dev/github.com/matzehuels/imgstack/pkg/observability
// [viewport]: https://pkg.go.dev/github.com/matzehuels/imgstack/pkg/viewport
// [errors]: https://pkg.go.dev/github.com/matzehuels/imgstack/pkg/errors
// [session]: https://pkg.go.dev/github.com/matzehuels/imgstack/pkg/session
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/imgstack/pkg/pipeline
package pkg
