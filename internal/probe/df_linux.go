package probe

import "golang.org/x/sys/unix"

// setDontFragment toggles the IP don't-fragment behavior on the family's
// socket. Only raw sockets expose the option; in unprivileged datagram mode
// the request is silently ignored, matching the rest of that mode's reduced
// fidelity.
func setDontFragment(fc *familyConn, fam Family, df bool) error {
	if fc.sysc == nil {
		return nil
	}
	rc, err := fc.sysc.SyscallConn()
	if err != nil {
		return err
	}
	var serr error
	cerr := rc.Control(func(fd uintptr) {
		if fam == FamilyV6 {
			v := 0
			if df {
				v = 1
			}
			serr = unix.SetsockoptInt(int(fd), unix.IPPROTO_IPV6, unix.IPV6_DONTFRAG, v)
			return
		}
		v := unix.IP_PMTUDISC_DONT
		if df {
			v = unix.IP_PMTUDISC_DO
		}
		serr = unix.SetsockoptInt(int(fd), unix.IPPROTO_IP, unix.IP_MTU_DISCOVER, v)
	})
	if cerr != nil {
		return cerr
	}
	return serr
}
