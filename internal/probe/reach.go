package probe

import "context"

// Reachable reports the first port in ports accepting a TCP connection
// from addr, in the order given. It is the last resort of the direct
// resolver: proof something lives at the address when no identification
// protocol answered.
func Reachable(ctx context.Context, addr string, ports []int) (int, bool) {
	for _, port := range ports {
		if ctx.Err() != nil {
			return 0, false
		}
		conn, err := dialPort(ctx, addr, port)
		if err != nil {
			continue
		}
		conn.Close()
		return port, true
	}
	return 0, false
}
