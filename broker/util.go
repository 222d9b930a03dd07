package broker

// popFrame splits msg into its first frame and the remainder, mirroring
// the pop-the-head idiom the wire parsing in loop.go repeats for every
// frame layout it handles. Calling popFrame on an empty slice returns a
// nil frame and leaves msg untouched, which callers turn into a
// malformed frame drop.
func popFrame(msg [][]byte) ([]byte, [][]byte) {
	if len(msg) == 0 {
		return nil, msg
	}
	return msg[0], msg[1:]
}

// cloneFrames deep-copies a frame list so it outlives the ZMQ receive
// buffer it came from; goczmq reuses its internal buffers across
// RecvMessage calls.
func cloneFrames(frames [][]byte) [][]byte {
	out := make([][]byte, len(frames))
	for i, f := range frames {
		cp := make([]byte, len(f))
		copy(cp, f)
		out[i] = cp
	}
	return out
}
