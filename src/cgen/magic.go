package cgen

import "math/big"

// ---------------------
// ----- Magic multiplier constants (spec.md §4.4) -----
// ---------------------
//
// These implement Hacker's Delight chapter 10's "magic number" derivation
// for replacing a division by a fixed non-power-of-two divisor with a
// high-word multiply plus a shift/correction. Kept width-generic (via
// math/big) rather than hard-coded to 32/64 bits, since this back end
// targets both a 64-bit and a 32-bit machine (spec.md §1) and the two
// targets' division lowerings share this routine.

// MagicSigned computes the signed division magic multiplier and shift
// for dividing a width-bit signed value by the non-zero, non-power-of-two
// constant d, following Hacker's Delight figure 10-1.
func MagicSigned(d int64, width uint) (m int64, shift uint) {
	n := big.NewInt(1)
	n.Lsh(n, width-1) // n = 2^(width-1)

	two31 := new(big.Int).Set(n)
	ad := new(big.Int).Abs(big.NewInt(d))

	t := new(big.Int).Add(two31, signBit(d, width))
	anc := new(big.Int).Sub(t, big.NewInt(1))
	anc.Sub(anc, new(big.Int).Mod(t, ad))

	p := width - 1
	q1, r1 := new(big.Int).DivMod(two31, anc, new(big.Int))
	q2, r2 := new(big.Int).DivMod(two31, ad, new(big.Int))

	two := big.NewInt(2)
	for {
		p++
		q1.Mul(q1, two)
		r1.Mul(r1, two)
		if r1.Cmp(anc) >= 0 {
			q1.Add(q1, big.NewInt(1))
			r1.Sub(r1, anc)
		}
		q2.Mul(q2, two)
		r2.Mul(r2, two)
		if r2.Cmp(ad) >= 0 {
			q2.Add(q2, big.NewInt(1))
			r2.Sub(r2, ad)
		}
		delta := new(big.Int).Sub(ad, r2)
		if q1.Cmp(delta) < 0 || (q1.Cmp(delta) == 0 && r1.Sign() == 0) {
			continue
		}
		break
	}

	mag := new(big.Int).Add(q2, big.NewInt(1))
	mag = wrapSigned(mag, width)
	if d < 0 {
		mag = wrapSigned(new(big.Int).Neg(mag), width)
	}
	return mag.Int64(), p - width
}

// MagicUnsigned computes the unsigned division magic multiplier, shift
// and "needs correction add" flag for dividing a width-bit unsigned value
// by the non-zero, non-power-of-two constant d, following Hacker's
// Delight figure 10-4, generalized from its fixed 32-bit presentation to
// an arbitrary width so the 64-bit and 32-bit targets share one routine.
func MagicUnsigned(d uint64, width uint) (m uint64, shift uint, add bool) {
	one := big.NewInt(1)
	bound := new(big.Int).Lsh(one, width)          // 2^width
	half := new(big.Int).Lsh(one, width-1)         // 2^(width-1)
	halfMinus1 := new(big.Int).Sub(half, one)       // 2^(width-1) - 1
	allOnes := new(big.Int).Sub(bound, one)         // 2^width - 1
	dd := new(big.Int).SetUint64(d)

	nc := new(big.Int).Sub(allOnes, new(big.Int).Mod(bound, dd))

	p := width - 1
	q1, r1 := new(big.Int).DivMod(half, nc, new(big.Int))
	q2, r2 := new(big.Int).DivMod(halfMinus1, dd, new(big.Int))

	for {
		p++
		if r1.Cmp(new(big.Int).Sub(nc, r1)) >= 0 {
			q1.Add(q1.Mul(q1, big.NewInt(2)), one)
			r1.Sub(r1.Mul(r1, big.NewInt(2)), nc)
		} else {
			q1.Mul(q1, big.NewInt(2))
			r1.Mul(r1, big.NewInt(2))
		}
		rp1 := new(big.Int).Add(r2, one)
		if rp1.Cmp(new(big.Int).Sub(dd, r2)) >= 0 {
			if q2.Cmp(halfMinus1) >= 0 {
				add = true
			}
			q2.Add(q2.Mul(q2, big.NewInt(2)), one)
			r2.Add(r2.Mul(r2, big.NewInt(2)), one)
			r2.Sub(r2, dd)
		} else {
			if q2.Cmp(half) >= 0 {
				add = true
			}
			q2.Mul(q2, big.NewInt(2))
			r2.Add(r2.Mul(r2, big.NewInt(2)), one)
		}
		delta := new(big.Int).Sub(dd, one)
		delta.Sub(delta, r2)
		if p < 2*width && (q1.Cmp(delta) < 0 || (q1.Cmp(delta) == 0 && r1.Sign() == 0)) {
			continue
		}
		break
	}

	mag := new(big.Int).Add(q2, one)
	mag.Mod(mag, bound)
	return mag.Uint64(), p - width, add
}

func signBit(d int64, width uint) *big.Int {
	if d < 0 {
		return new(big.Int).Lsh(big.NewInt(1), width-1)
	}
	return big.NewInt(0)
}

// wrapSigned reduces v modulo 2^width into the signed range
// [-2^(width-1), 2^(width-1)-1], the two's-complement wraparound a real
// machine word performs.
func wrapSigned(v *big.Int, width uint) *big.Int {
	bound := new(big.Int).Lsh(big.NewInt(1), width)
	half := new(big.Int).Lsh(big.NewInt(1), width-1)
	r := new(big.Int).Mod(v, bound)
	if r.Sign() < 0 {
		r.Add(r, bound)
	}
	if r.Cmp(half) >= 0 {
		r.Sub(r, bound)
	}
	return r
}
