// Package model defines how loaded objects are named and addressed.
//
// Every object in the item tree has a local name and an optional parent.
// From that chain two identities are derived:
//   - Full name: local names joined by "/" from the root down, e.g. "team/app/build"
//   - URL: fragments joined parent-to-child, e.g. "job/team/job/app/"
//
// Components:
//   - Addressable, FullNamed, ModelObject: small capability interfaces
//   - AddressableModelObject: composite of Addressable and ModelObject
//   - Node: the minimal tree node every loaded object implements
//   - Base: embeddable Node with a non-owning parent back-reference
//
// URL fragments are either empty (the system root) or relative paths that never
// start with "/" and always end with "/", so a front end can concatenate them.
//
// The ancestor relation is expected to be a tree. Attach rejects parents that
// would close a cycle, and every upward walk stops at the first repeated node.
//
// Example Usage:
//
//	job := &myJob{}
//	if err := job.Attach(job, folder, "build"); err != nil {
//	    return err
//	}
//	fmt.Println(job.FullName()) // "team/build"
//	fmt.Println(job.URL())      // "job/team/job/build/"
package model
