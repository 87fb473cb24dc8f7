package game

import (
	"encoding/binary"
	"fmt"
	"math/bits"

	"golang.org/x/crypto/chacha20"
)

// SeedSize ChaCha20 种子（密钥）长度
const SeedSize = chacha20.KeySize

const (
	wordsPerBlock = 16
	blockSize     = 4 * wordsPerBlock // 一个 ChaCha20 块的字节数
)

// Cursor 128 位字位置：已消耗的 32 位字数量
type Cursor struct {
	Hi uint64 `msgpack:"hi"`
	Lo uint64 `msgpack:"lo"`
}

func (c Cursor) String() string {
	if c.Hi == 0 {
		return fmt.Sprintf("%d", c.Lo)
	}
	return fmt.Sprintf("0x%x%016x", c.Hi, c.Lo)
}

// RNGState 随机数发生器的可序列化形式：种子 + 游标，而不是输出历史
type RNGState struct {
	Seed   [SeedSize]byte `msgpack:"seed"`
	Cursor Cursor         `msgpack:"cursor"`
}

// RNG 基于计数器的 ChaCha20 流发生器。
// 输出只取决于 (seed, cursor)，因此 RestoreRNG 可以 O(1) 直接定位，无需重放。
// 64 位块计数器的低 32 位落在 IETF 计数字，高 32 位落在第一个 nonce 字，流编号为 0。
type RNG struct {
	seed [SeedSize]byte

	blk    uint64 // 下一个字所在的块
	idx    int    // 块内字下标 0..15
	loaded bool
	buf    [blockSize]byte

	c     *chacha20.Cipher
	cHi   uint32
	cNext uint64
}

// NewRNG 由 32 字节种子构造
func NewRNG(seed [SeedSize]byte) *RNG {
	return &RNG{seed: seed}
}

// SeedRNGFromUint64 用 PCG32 把 64 位整数扩展成 32 字节种子
func SeedRNGFromUint64(state uint64) *RNG {
	const (
		mul = 6364136223846793005
		inc = 11634580027462260723
	)
	var seed [SeedSize]byte
	for i := 0; i < SeedSize; i += 4 {
		state = state*mul + inc
		xorshifted := uint32(((state >> 18) ^ state) >> 27)
		rot := int(state >> 59)
		binary.LittleEndian.PutUint32(seed[i:], bits.RotateLeft32(xorshifted, -rot))
	}
	return NewRNG(seed)
}

// RestoreRNG 从 (seed, cursor) 重建发生器。
// 任意游标都合法：超出 68 位字位置的高位被忽略（与计数器回绕一致）。
func RestoreRNG(st RNGState) *RNG {
	r := NewRNG(st.Seed)
	r.Seek(st.Cursor)
	return r
}

// State 导出种子与当前游标
func (r *RNG) State() RNGState {
	return RNGState{Seed: r.seed, Cursor: r.Cursor()}
}

// Seed 返回种子副本
func (r *RNG) Seed() [SeedSize]byte { return r.seed }

// Cursor 当前字位置
func (r *RNG) Cursor() Cursor {
	return Cursor{
		Hi: r.blk >> 60,
		Lo: r.blk<<4 | uint64(r.idx),
	}
}

// Seek 直接设置字位置
func (r *RNG) Seek(c Cursor) {
	r.blk = c.Hi<<60 | c.Lo>>4
	r.idx = int(c.Lo & (wordsPerBlock - 1))
	r.loaded = false
}

// Clone 复制一个独立的发生器，后续输出与原发生器相同
func (r *RNG) Clone() *RNG {
	return RestoreRNG(r.State())
}

// Uint32 取下一个 32 位字
func (r *RNG) Uint32() uint32 {
	if !r.loaded {
		r.generate(r.blk)
		r.loaded = true
	}
	w := binary.LittleEndian.Uint32(r.buf[r.idx*4:])
	r.idx++
	if r.idx == wordsPerBlock {
		r.idx = 0
		r.blk++
		r.loaded = false
	}
	return w
}

// Uint64 连续两个字，低位在前
func (r *RNG) Uint64() uint64 {
	lo := r.Uint32()
	hi := r.Uint32()
	return uint64(hi)<<32 | uint64(lo)
}

// FillBytes 按小端写入，消耗 ceil(len(p)/4) 个字，不足一字的剩余字节丢弃
func (r *RNG) FillBytes(p []byte) {
	var w [4]byte
	for len(p) > 0 {
		binary.LittleEndian.PutUint32(w[:], r.Uint32())
		n := copy(p, w[:])
		p = p[n:]
	}
}

// Read 实现 io.Reader，从不返回错误
func (r *RNG) Read(p []byte) (int, error) {
	r.FillBytes(p)
	return len(p), nil
}

// generate 把第 blk 块的密钥流写入 buf
func (r *RNG) generate(blk uint64) {
	hi := uint32(blk >> 32)
	if r.c == nil || r.cHi != hi || r.cNext != blk {
		var nonce [chacha20.NonceSize]byte
		binary.LittleEndian.PutUint32(nonce[0:], hi)
		c, err := chacha20.NewUnauthenticatedCipher(r.seed[:], nonce[:])
		if err != nil {
			// 密钥与 nonce 长度固定，不可能出错
			panic(err)
		}
		c.SetCounter(uint32(blk))
		r.c, r.cHi = c, hi
	}
	for i := range r.buf {
		r.buf[i] = 0
	}
	r.c.XORKeyStream(r.buf[:], r.buf[:])
	r.cNext = blk + 1
	if uint32(r.cNext) == 0 {
		// 低 32 位计数器用尽，下一块需要换 nonce 重建
		r.c = nil
	}
}
