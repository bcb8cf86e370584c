package policy

import (
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
)

// policyFile is the CUE-facing shape of one policy body under
// `policy: <name>: {...}`.
type policyFile struct {
	Sections         map[string]string `json:"sections"`
	RedactedFields   []string          `json:"redacted_fields"`
	AnonymizedFields []string          `json:"anonymized_fields"`
}

// Load reads every .cue file in dir and returns the validated policies
// declared under the top-level `policy` struct, keyed by name. Any
// validation failure aborts the whole load: a partially valid policy
// set must never reach an export path.
func Load(dir string) (map[string]Policy, error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, &PolicyError{Code: ErrCodeNotFound, Detail: fmt.Sprintf("policy directory not found: %s", dir)}
	}
	if err != nil {
		return nil, &PolicyError{Code: ErrCodeNotFound, Detail: fmt.Sprintf("error accessing policy directory: %v", err)}
	}
	if !info.IsDir() {
		return nil, &PolicyError{Code: ErrCodeNotFound, Detail: fmt.Sprintf("not a directory: %s", dir)}
	}

	files, err := findCUEFiles(dir)
	if err != nil {
		return nil, &PolicyError{Code: ErrCodeLoadFailed, Detail: fmt.Sprintf("error scanning directory: %v", err)}
	}
	if len(files) == 0 {
		return nil, &PolicyError{Code: ErrCodeNoFiles, Detail: fmt.Sprintf("no CUE files found in %s", dir)}
	}

	ctx := cuecontext.New()
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, &PolicyError{Code: ErrCodeLoadFailed, Detail: "no CUE instances loaded"}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, &PolicyError{Code: ErrCodeLoadFailed, Detail: fmt.Sprintf("loading CUE files: %v", inst.Err)}
	}

	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, &PolicyError{Code: ErrCodeBuildFailed, Detail: fmt.Sprintf("building CUE value: %v", err)}
	}

	return decodePolicies(value)
}

func decodePolicies(value cue.Value) (map[string]Policy, error) {
	root := value.LookupPath(cue.ParsePath("policy"))
	if !root.Exists() {
		return nil, &PolicyError{Code: ErrCodeEmpty, Detail: "no top-level policy struct found"}
	}

	iter, err := root.Fields()
	if err != nil {
		return nil, &PolicyError{Code: ErrCodeDecodeFailed, Detail: fmt.Sprintf("iterating policies: %v", err)}
	}

	policies := map[string]Policy{}
	for iter.Next() {
		name := iter.Label()

		var body policyFile
		if err := iter.Value().Decode(&body); err != nil {
			return nil, &PolicyError{
				Code:   ErrCodeDecodeFailed,
				Policy: name,
				Detail: fmt.Sprintf("decoding policy body: %v", err),
			}
		}

		sections := make(map[string]Visibility, len(body.Sections))
		for id, vis := range body.Sections {
			sections[id] = Visibility(vis)
		}
		p, err := New(name, sections, body.RedactedFields, body.AnonymizedFields)
		if err != nil {
			return nil, err
		}
		policies[name] = p
	}

	if len(policies) == 0 {
		return nil, &PolicyError{Code: ErrCodeEmpty, Detail: "no policies declared"}
	}
	return policies, nil
}

func findCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}
