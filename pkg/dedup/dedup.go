// Package dedup collapses posts that refer to the same feed entry.
package dedup

import "weibocrawl/pkg/models"

// linkTail is how many trailing characters of the link join the key.
const linkTail = 24

// Key returns the canonical identity of a post: id, short id and the tail
// of its link joined by "|".
func Key(p *models.Post) string {
	link := p.Link
	if len(link) > linkTail {
		link = link[len(link)-linkTail:]
	}
	return p.ID + "|" + p.BID + "|" + link
}

// Dedup returns one post per key, keeping the first occurrence and the
// input order. The input slice is not modified.
func Dedup(posts []models.Post) []models.Post {
	set := NewSet()
	out := make([]models.Post, 0, len(posts))
	for _, p := range posts {
		if set.Add(&p) {
			out = append(out, p)
		}
	}
	return out
}

// Set accumulates posts across fetches, tiers and runs. Besides the key it
// indexes canonical links, since search results carry only the short id and
// would otherwise miss the key of the same post seen through an API tier.
type Set struct {
	seen  map[string]struct{}
	links map[string]struct{}
	posts []models.Post
}

// NewSet creates an empty set.
func NewSet() *Set {
	return &Set{seen: make(map[string]struct{}), links: make(map[string]struct{})}
}

// Add records p and reports whether neither its key nor its link was seen.
func (s *Set) Add(p *models.Post) bool {
	if s.Contains(p) {
		return false
	}
	s.seen[Key(p)] = struct{}{}
	if p.Link != "" {
		s.links[p.Link] = struct{}{}
	}
	s.posts = append(s.posts, *p)
	return true
}

// AddAll adds every post and returns how many were new.
func (s *Set) AddAll(posts []models.Post) int {
	n := 0
	for i := range posts {
		if s.Add(&posts[i]) {
			n++
		}
	}
	return n
}

// Contains reports whether a post with the same key or link was already
// added.
func (s *Set) Contains(p *models.Post) bool {
	if _, ok := s.seen[Key(p)]; ok {
		return true
	}
	if p.Link == "" {
		return false
	}
	_, ok := s.links[p.Link]
	return ok
}

// Len returns the number of distinct posts.
func (s *Set) Len() int {
	return len(s.posts)
}

// Posts returns the accumulated posts in first-seen order.
func (s *Set) Posts() []models.Post {
	out := make([]models.Post, len(s.posts))
	copy(out, s.posts)
	return out
}
