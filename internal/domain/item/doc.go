// Package item implements the persisted top-level entities of the host.
//
// Each item is a directory holding a config file. The directory name is the
// item's local name; the config file decides its kind.
//
// Components:
//   - Item: the contract loaders return and the host serves
//   - Job: a plain persisted item
//   - Folder: an item that groups child items under <dir>/jobs/
//   - Codec: config file formats (config.yaml, config.json, config.toml)
//
// Storage Structure:
//
//	<home>/jobs/<name>/config.yaml
//	<home>/jobs/<folder>/jobs/<child>/config.yaml
//
// Example Usage:
//
//	it, err := item.Open(root, filepath.Join(home, "jobs", "build"))
//	if err != nil {
//	    return err
//	}
//	if err := it.Load(ctx); err != nil {
//	    return err
//	}
package item
