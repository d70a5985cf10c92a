//go:build manglrdebug

package dep

const debug = true
