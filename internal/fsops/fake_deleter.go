package fsops

// FakeDeleter implements Deleter for testing.
// It records every call and returns the error registered for that path,
// without touching the filesystem.
type FakeDeleter struct {
	Calls  []string
	Errors map[string]error
}

// FailOn makes every later call for path return err.
func (f *FakeDeleter) FailOn(path string, err error) {
	if f.Errors == nil {
		f.Errors = make(map[string]error)
	}
	f.Errors[path] = err
}

func (f *FakeDeleter) Remove(path string) error {
	f.Calls = append(f.Calls, "rm:"+path)
	return f.Errors[path]
}

func (f *FakeDeleter) RemoveAll(path string) error {
	f.Calls = append(f.Calls, "rmall:"+path)
	return f.Errors[path]
}
