//go:build !linux

package probe

// setDontFragment is a no-op on platforms without a portable per-socket
// don't-fragment option; probes are still sent, without the DF bit.
func setDontFragment(fc *familyConn, fam Family, df bool) error {
	return nil
}
