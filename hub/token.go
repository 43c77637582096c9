package hub

import "fmt"

// Rank orders the tables of the hub. Lower ranks are acquired first.
type Rank uint8

// Table ranks.
const (
	RankRoot Rank = iota
	RankDevices
	RankSwapChains
	RankCommandBuffers
	RankBuffers
	RankTextures
	RankTextureViews
	RankBindGroups
	RankSamplers
	RankComputePipelines
	RankRenderPipelines
	RankRenderBundles
)

var rankNames = [...]string{
	RankRoot:           "root",
	RankDevices:        "devices",
	RankSwapChains:     "swap chains",
	RankCommandBuffers: "command buffers",
	RankBuffers:        "buffers",
	RankTextures:       "textures",
	RankTextureViews:   "texture views",

	RankBindGroups:       "bind groups",
	RankSamplers:         "samplers",
	RankComputePipelines: "compute pipelines",
	RankRenderPipelines:  "render pipelines",
	RankRenderBundles:    "render bundles",
}

// String returns the table name for the rank.
func (r Rank) String() string {
	if int(r) < len(rankNames) {
		return rankNames[r]
	}
	return fmt.Sprintf("Rank(%d)", uint8(r))
}

// Token is proof of the highest-ranked table held by the caller.
type Token struct {
	rank Rank
}

// Root returns the token of a caller holding no table.
func Root() Token { return Token{rank: RankRoot} }

// Rank returns the rank of the table the token was issued for.
func (t Token) Rank() Rank { return t.rank }

// LockOrderError is the panic value raised when a table is acquired out of
// rank order.
type LockOrderError struct {
	Held     Rank
	Acquired Rank
}

func (e *LockOrderError) Error() string {
	return fmt.Sprintf("hub: acquiring %s while holding %s violates lock order", e.Acquired, e.Held)
}

// check panics unless a table of rank r may be acquired with t.
func (t Token) check(r Rank) {
	if t.rank >= r {
		panic(&LockOrderError{Held: t.rank, Acquired: r})
	}
}
