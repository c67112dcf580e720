package engine

import (
	"context"
	"sort"

	"github.com/restfulgit/restfulgit/pkg/gitobj"
)

// Contributor is one author identity with its commit count. Identity is the
// author e-mail address, compared case-sensitively; Name is the one from the
// identity's first-seen commit.
type Contributor struct {
	Name          string
	Email         string
	Contributions int
}

// Contributors walks the entire history reachable from start and counts
// commits per author identity, most prolific first, ties broken by
// first-seen order. No limit and no caching: cost is linear in history
// size. Long histories should be guarded by the caller's request timeout.
func Contributors(ctx context.Context, s gitobj.Store, start gitobj.Hash) ([]*Contributor, error) {
	byEmail := make(map[string]*Contributor)
	order := make(map[string]int)

	err := Walk(ctx, s, start, WalkOptions{}, func(commit *gitobj.Commit) error {
		email := commit.Author.Email
		c, ok := byEmail[email]
		if !ok {
			c = &Contributor{Name: commit.Author.Name, Email: email}
			byEmail[email] = c
			order[email] = len(order)
		}
		c.Contributions++
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := make([]*Contributor, 0, len(byEmail))
	for _, c := range byEmail {
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Contributions != out[j].Contributions {
			return out[i].Contributions > out[j].Contributions
		}
		return order[out[i].Email] < order[out[j].Email]
	})
	return out, nil
}
