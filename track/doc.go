// Package track records how a command buffer uses its resources.
//
// Buffers and textures are tracked with a usage state ([StatefulTracker]).
// Passes accumulate their usage into a scope with [StatefulTracker.Use];
// the scope is then folded into the command buffer's tracker with
// [StatefulTracker.MergeReplace], which yields one [PendingTransition] for
// every resource whose usage changes. Every other category is only tracked
// for liveness ([StatelessTracker]) and is folded in with MergeExtend.
//
// Trackers are not safe for concurrent use. The command buffer owning a
// tracker is only touched while its table is write-locked.
package track
