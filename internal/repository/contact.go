package repository

import (
	"context"

	"gitee.com/flycash/labour-tracker/internal/domain"
	"gitee.com/flycash/labour-tracker/internal/repository/cache/local"
	"gitee.com/flycash/labour-tracker/internal/repository/dao"
)

type ContactRepository interface {
	Save(ctx context.Context, c domain.Contact) error
	Get(ctx context.Context, id string) (domain.Contact, error)
	// BatchGet skips ids without a contact.
	BatchGet(ctx context.Context, ids []string) (map[string]domain.Contact, error)
}

type contactRepository struct {
	dao   dao.ContactDAO
	cache *local.ContactCache
}

func NewContactRepository(d dao.ContactDAO, c *local.ContactCache) ContactRepository {
	return &contactRepository{dao: d, cache: c}
}

func (r *contactRepository) Save(ctx context.Context, c domain.Contact) error {
	err := r.dao.Upsert(ctx, dao.Contact{
		ID:          c.ID,
		FirstName:   c.FirstName,
		LastName:    c.LastName,
		Email:       c.Email,
		PhoneNumber: c.PhoneNumber,
	})
	if err != nil {
		return err
	}
	r.cache.Delete(c.ID)
	return nil
}

func (r *contactRepository) Get(ctx context.Context, id string) (domain.Contact, error) {
	if c, ok := r.cache.Get(id); ok {
		return c, nil
	}
	entity, err := r.dao.FindByID(ctx, id)
	if err != nil {
		return domain.Contact{}, err
	}
	c := r.toDomain(entity)
	r.cache.Set(c)
	return c, nil
}

func (r *contactRepository) BatchGet(ctx context.Context, ids []string) (map[string]domain.Contact, error) {
	res := make(map[string]domain.Contact, len(ids))
	missing := make([]string, 0, len(ids))
	for _, id := range ids {
		if c, ok := r.cache.Get(id); ok {
			res[id] = c
			continue
		}
		missing = append(missing, id)
	}
	if len(missing) == 0 {
		return res, nil
	}
	entities, err := r.dao.FindByIDs(ctx, missing)
	if err != nil {
		return nil, err
	}
	for id, entity := range entities {
		c := r.toDomain(entity)
		r.cache.Set(c)
		res[id] = c
	}
	return res, nil
}

func (r *contactRepository) toDomain(c dao.Contact) domain.Contact {
	return domain.Contact{
		ID:          c.ID,
		FirstName:   c.FirstName,
		LastName:    c.LastName,
		Email:       c.Email,
		PhoneNumber: c.PhoneNumber,
	}
}
