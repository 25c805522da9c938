// Package loader defines the item loader extension point.
//
// A loader is one strategy for turning part of the persistence root into
// items. Loaders are registered explicitly at composition time with a rank and
// invoked by the host in ascending rank order; registrations with equal rank
// keep their registration order.
//
// Components:
//   - ItemLoader: the strategy interface
//   - Root: the handle a loader receives (directories, claims, existing items)
//   - Registry: ordered registration list
//   - DirectoryLoader: structural loader for <items>/<name>/config.yaml
//   - LegacyLoader: generic fallback for config.json and config.toml
//
// Example Usage:
//
//	reg := loader.NewRegistry()
//	reg.MustRegister(loader.Registration{Name: "directory", Order: ordering.Structural, Loader: loader.NewDirectoryLoader(nil)})
//	reg.MustRegister(loader.Registration{Name: "legacy", Order: ordering.Generic, Loader: loader.NewLegacyLoader(nil)})
//	for _, r := range reg.Sorted() {
//		items, err := r.Loader.Load(ctx, root)
//		...
//	}
package loader
