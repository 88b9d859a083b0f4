// Package shmem provides named shared memory segments that unrelated
// processes can map into their address space and use to exchange raw bytes.
//
// A segment is configured through a builder-style Conf, created once by an
// owning process and opened by any number of other processes, either by its
// identifier or through a reference file (flink) that contains the
// identifier. Two backing-store strategies exist: the kernel shared-memory
// namespace (the default) and filesystem-backed mode, which places the
// backing file in a caller-chosen directory.
//
// Example:
//
//	seg, err := shmem.NewConf().
//		Size(4096).
//		Flink("/tmp/myapp.link").
//		Create()
//	if err != nil {
//		// ...
//	}
//	defer seg.Close()
//	copy(seg.Bytes(), "hello")
//
// Another process rendezvous on the flink:
//
//	seg, err := shmem.NewConf().Flink("/tmp/myapp.link").Open()
//
// The package provides no synchronization over the mapped bytes. Every
// process holding a handle shares the same physical memory; callers must
// layer their own locks or atomics on top. Exactly one handle across all
// processes should be the owner at any time: the owner removes the backing
// region and the flink on Close, so a premature release leaves live handles
// in other processes pointing at a destroyed region, and no owner at all
// leaks the region. Ownership can be moved with SetOwner, keeping that
// discipline is the caller's responsibility.
package shmem
