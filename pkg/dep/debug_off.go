//go:build !manglrdebug

package dep

const debug = false
