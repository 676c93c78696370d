package future

import "reflect"

// reflectSelect blocks on an arbitrary number of receive-only done channels
// and returns the index of the first to become ready, using reflect.Select
// since the case count is only known at runtime.
func reflectSelect(chans []<-chan struct{}) int {
	cases := make([]reflect.SelectCase, len(chans))
	for i, ch := range chans {
		cases[i] = reflect.SelectCase{Dir: reflect.SelectRecv, Chan: reflect.ValueOf(ch)}
	}
	chosen, _, _ := reflect.Select(cases)
	return chosen
}
