package ecs

// primes is the bucket-size table. Each entry is roughly double the previous
// one so resizes amortise to O(1) per registration.
var primes = [...]int{
	3, 7, 17, 37, 79, 163, 331, 673, 1361, 2729, 5471, 10949, 21911, 43853,
	87719, 175447, 350899, 701819, 1403641, 2807303, 5614657, 11229331,
	22458671, 44917381, 89834777, 179669557, 359339171, 718678369,
	1437356741, 2147483647,
}

// primeAtLeast returns the smallest table prime >= n.
func primeAtLeast(n int) int {
	for _, p := range primes {
		if p >= n {
			return p
		}
	}
	return searchPrime(n)
}

// nextPrime returns the table prime that follows n. Past the end of the table
// it searches for the first prime above 2n.
func nextPrime(n int) int {
	for _, p := range primes {
		if p > n {
			return p
		}
	}
	return searchPrime(2*n + 1)
}

func searchPrime(n int) int {
	if n <= 2 {
		return 2
	}
	for c := n | 1; ; c += 2 {
		if isPrime(c) {
			return c
		}
	}
}

func isPrime(n int) bool {
	if n < 2 {
		return false
	}
	if n%2 == 0 {
		return n == 2
	}
	for d := 3; d*d <= n; d += 2 {
		if n%d == 0 {
			return false
		}
	}
	return true
}
