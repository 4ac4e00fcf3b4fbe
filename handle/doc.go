// Package handle manages the reference tables behind managed-runtime handles.
//
// A Ref packs three fields into 64 bits so that it is never zero for a live
// entry and never aliases a recycled slot:
//
//	bits 62-63  scope (1 = local, 2 = global)
//	bits 32-61  generation of the slot when the ref was issued
//	bits  0-31  slot index
//
// # Tables
//
// A Table maps refs of one scope to entries:
//
//	globals := handle.NewTable[*Object](handle.ScopeGlobal)
//	ref := globals.Add(obj)
//	obj, ok := globals.Get(ref)
//	_, err := globals.Release(ref) // a second Release reports double_release
//
// # Local frames
//
// Frames layer a frame stack over a local table. Every ref created while a
// frame is on top is reclaimed when the frame is popped; Pop can carry one
// ref across into the parent frame:
//
//	locals := handle.NewFrames[*Object]()
//	locals.Push(16)
//	r := locals.Add(obj)
//	kept, _ := locals.Pop(r)
//
// # Owned globals
//
// Owned wraps a global ref with a release function that runs at most once,
// making "release exactly once" enforceable for holders that may race.
//
// # Observers
//
// Tables notify observers of Created, Released and Promoted events.
package handle
