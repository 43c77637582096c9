// Package hub provides the concurrent identity tables that own every
// object the core refers to by identity.
//
// # Lock hierarchy
//
// Each table is a [Storage] guarded by its own reader/writer lock and
// carries a fixed [Rank]. A caller may only acquire a table whose rank is
// strictly greater than the rank of every table it already holds. The
// [Token] returned by each acquisition carries the rank of the table just
// taken, and the next acquisition checks it:
//
//	tok := hub.Root()
//	swapChains := g.swapChains.Read(tok)           // RankSwapChains
//	defer swapChains.Release()
//	sessions := g.sessions.Write(swapChains.Token()) // RankCommandBuffers
//	defer sessions.Release()
//
// The ranks, lowest first:
//
//	RankDevices < RankSwapChains < RankCommandBuffers <
//	RankBuffers < RankTextures < RankTextureViews <
//	RankBindGroups < RankSamplers < RankComputePipelines <
//	RankRenderPipelines < RankRenderBundles
//
// Acquiring out of order panics with a [LockOrderError]. A single call
// acquires only the tables it needs and releases all of them before
// returning; no lock is held across operations.
package hub
