package memory

import (
	"context"
	"sort"
	"sync"

	"postsapi/internal/domain/post"
	"postsapi/internal/port/repository"
)

// 簡易なメモリ常駐版の投稿リポジトリ。title の一意性は titles で管理する。
type InMemoryPostRepository struct {
	mu     sync.RWMutex
	store  map[post.ID]*post.Post
	titles map[string]post.ID
}

/**
 * 初期化済みマップを持つメモリリポジトリを返す。
 */
func NewInMemoryPostRepository() *InMemoryPostRepository {
	return &InMemoryPostRepository{
		store:  make(map[post.ID]*post.Post),
		titles: make(map[string]post.ID),
	}
}

/**
 * 同じ ID と title が未登録であれば投稿を格納する。
 */
func (r *InMemoryPostRepository) Create(ctx context.Context, p *post.Post) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.store[p.ID()]; ok {
		return repository.ErrPostAlreadyExists
	}
	if err := r.checkTitleLocked(p); err != nil {
		return err
	}
	r.putLocked(p)
	return nil
}

/**
 * ID で検索し、存在しなければ NotFound を返す。
 */
func (r *InMemoryPostRepository) Get(ctx context.Context, id post.ID) (*post.Post, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.store[id]
	if !ok {
		return nil, repository.ErrPostNotFound
	}
	return p, nil
}

// 作成日時の降順（同時刻は ID の降順）に並べ、Offset/Limit を適用する。
func (r *InMemoryPostRepository) List(ctx context.Context, filter repository.ListFilter) ([]*post.Post, error) {
	r.mu.RLock()
	matched := make([]*post.Post, 0, len(r.store))
	for _, p := range r.store {
		if filter.Title != nil && p.Title() != *filter.Title {
			continue
		}
		matched = append(matched, p)
	}
	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if !a.CreatedAt().Equal(b.CreatedAt()) {
			return a.CreatedAt().After(b.CreatedAt())
		}
		return a.ID() > b.ID()
	})

	offset := max(filter.Offset, 0)
	if offset >= len(matched) {
		return []*post.Post{}, nil
	}
	matched = matched[offset:]
	if filter.Limit > 0 && filter.Limit < len(matched) {
		matched = matched[:filter.Limit]
	}
	return matched, nil
}

/**
 * 丸ごと上書きする。未登録なら新規に格納する。
 */
func (r *InMemoryPostRepository) Replace(ctx context.Context, p *post.Post) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.checkTitleLocked(p); err != nil {
		return err
	}
	r.putLocked(p)
	return nil
}

/**
 * 既存エントリのみ更新し、未登録なら NotFound を返す。
 */
func (r *InMemoryPostRepository) Update(ctx context.Context, p *post.Post) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.store[p.ID()]; !ok {
		return repository.ErrPostNotFound
	}
	if err := r.checkTitleLocked(p); err != nil {
		return err
	}
	r.putLocked(p)
	return nil
}

func (r *InMemoryPostRepository) Delete(ctx context.Context, id post.ID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.store[id]
	if !ok {
		return repository.ErrPostNotFound
	}
	delete(r.titles, p.Title())
	delete(r.store, id)
	return nil
}

// 他の投稿が同じ title を使っていれば違反を返す。呼び出し側でロックを取ること。
func (r *InMemoryPostRepository) checkTitleLocked(p *post.Post) error {
	if owner, ok := r.titles[p.Title()]; ok && owner != p.ID() {
		return repository.TitleTaken(p.Title())
	}
	return nil
}

func (r *InMemoryPostRepository) putLocked(p *post.Post) {
	if prev, ok := r.store[p.ID()]; ok {
		delete(r.titles, prev.Title())
	}
	r.store[p.ID()] = p
	r.titles[p.Title()] = p.ID()
}
