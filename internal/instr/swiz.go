package instr

// SwizDigits implements the SWIZ digit-permutation, confirmed against
// original_source's program/instruction.rs: source is
// treated as an unsigned 4-digit decimal (one digit per position, 1 = units
// through 4 = thousands); mask supplies, at each output position, which
// source position (1..4) to copy from — 0 or any value outside 1..4 zeroes
// that output digit. The result's sign is the product of the two operands'
// signs (zero treated as positive, since it has no sign of its own to
// contribute).
func SwizDigits(source, mask int) int {
	srcDigits := digits4(abs(source))
	maskDigits := digits4(abs(mask))

	var result [4]int
	for i := 0; i < 4; i++ {
		m := maskDigits[i]
		if m >= 1 && m <= 4 {
			result[i] = srcDigits[m-1]
		}
	}

	magnitude := result[0] + result[1]*10 + result[2]*100 + result[3]*1000
	if sign(source)*sign(mask) < 0 {
		magnitude = -magnitude
	}
	return magnitude
}

// digits4 splits a non-negative n into its four decimal digits, index 0 =
// units through index 3 = thousands. Digits beyond the fourth are dropped:
// SWIZ only ever looks at positions 1..4.
func digits4(n int) [4]int {
	var d [4]int
	for i := 0; i < 4; i++ {
		d[i] = n % 10
		n /= 10
	}
	return d
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// sign returns 1 for n >= 0, -1 for n < 0.
func sign(n int) int {
	if n < 0 {
		return -1
	}
	return 1
}
