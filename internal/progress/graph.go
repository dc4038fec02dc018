package progress

import (
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidGraph = errors.New("invalid prerequisite graph")

// ValidateGraph 检查重复 id、悬空前置、环（Kahn 算法）以及是否存在根节点，一次返回全部问题
func ValidateGraph(topics []Topic) error {
	var errs []string

	ids := make(map[string]bool, len(topics))
	for _, t := range topics {
		if ids[t.ID] {
			errs = append(errs, fmt.Sprintf("duplicate topic id %q", t.ID))
		}
		ids[t.ID] = true
	}

	for _, t := range topics {
		for _, p := range t.Prerequisites {
			if p == t.ID {
				errs = append(errs, fmt.Sprintf("topic %q lists itself as a prerequisite", t.ID))
				continue
			}
			if !ids[p] {
				errs = append(errs, fmt.Sprintf("topic %q references unknown prerequisite %q", t.ID, p))
			}
		}
	}

	inDegree := make(map[string]int, len(topics))
	dependents := make(map[string][]string)
	for _, t := range topics {
		for _, p := range t.Prerequisites {
			if ids[p] {
				inDegree[t.ID]++
				dependents[p] = append(dependents[p], t.ID)
			}
		}
	}

	var queue []string
	hasRoot := false
	for _, t := range topics {
		if len(t.Prerequisites) == 0 {
			hasRoot = true
		}
		if inDegree[t.ID] == 0 {
			queue = append(queue, t.ID)
		}
	}

	visited := 0
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		visited++
		for _, dep := range dependents[id] {
			inDegree[dep]--
			if inDegree[dep] == 0 {
				queue = append(queue, dep)
			}
		}
	}

	if visited < len(ids) {
		var cycle []string
		for _, t := range topics {
			if inDegree[t.ID] > 0 {
				cycle = append(cycle, t.ID)
			}
		}
		errs = append(errs, fmt.Sprintf("cycle detected involving topics: %s", strings.Join(cycle, ", ")))
	}

	if len(topics) > 0 && !hasRoot {
		errs = append(errs, "no topic without prerequisites")
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w:\n  %s", ErrInvalidGraph, strings.Join(errs, "\n  "))
	}
	return nil
}
