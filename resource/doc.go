// Package resource defines the objects stored in the hub tables and the
// usage flags the trackers record for them.
//
// Buffers and textures carry state: [BufferUse] and [TextureUse] describe
// how a pass accesses them and drive barrier insertion. The remaining
// categories (views, bind groups, samplers, pipelines, bundles) are only
// tracked for liveness.
package resource
