package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stemsi/student-records/internal/model"
	"github.com/stemsi/student-records/internal/service/servicetest"
	"github.com/stemsi/student-records/internal/repository"
)

func anaFields() model.StudentFields {
	return model.StudentFields{
		Name:       "Ana Silva",
		Enrollment: "2024001",
		BirthDate:  "2008-03-15",
		Email:      "ana@escola.test",
		Status:     model.StatusActive,
	}
}

func TestStudentServiceCreate(t *testing.T) {
	ctx := context.Background()
	store := servicetest.NewStudentStore()
	pub := &servicetest.Publisher{}
	svc := NewStudentService(store, pub, zerolog.Nop())
	admin := uuid.New()

	t.Run("creator must be the caller", func(t *testing.T) {
		_, err := svc.Create(ctx, anaFields(), uuid.New(), admin)
		assert.ErrorIs(t, err, ErrCreatorMismatch)
		assert.Zero(t, store.Len())
		assert.Empty(t, pub.Changes())
	})

	t.Run("insert publishes a change", func(t *testing.T) {
		st, err := svc.Create(ctx, anaFields(), admin, admin)
		require.NoError(t, err)
		require.NotNil(t, st.CreatedBy)
		assert.Equal(t, admin, *st.CreatedBy)
		assert.NotEqual(t, uuid.Nil, st.ID)

		require.Len(t, pub.Changes(), 1)
		assert.Equal(t, model.ActionCreated, pub.Changes()[0].Action)
		assert.Equal(t, st.ID, pub.Changes()[0].StudentID)
		assert.Equal(t, admin, pub.Changes()[0].ActorID)
	})

	t.Run("duplicate enrollment", func(t *testing.T) {
		_, err := svc.Create(ctx, anaFields(), admin, admin)
		assert.ErrorIs(t, err, repository.ErrDuplicateEnrollment)
		assert.Len(t, pub.Changes(), 1)
	})
}

func TestStudentServiceUpdateOverwritesAllFields(t *testing.T) {
	ctx := context.Background()
	store := servicetest.NewStudentStore()
	pub := &servicetest.Publisher{}
	svc := NewStudentService(store, pub, zerolog.Nop())
	admin := uuid.New()

	created, err := svc.Create(ctx, anaFields(), admin, admin)
	require.NoError(t, err)

	fields := anaFields()
	fields.Name = "Ana Souza"
	fields.Status = model.StatusInactive
	updated, err := svc.Update(ctx, created.ID, fields, admin)
	require.NoError(t, err)

	assert.Equal(t, fields, updated.Fields())
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)
	require.NotNil(t, updated.CreatedBy)
	assert.Equal(t, admin, *updated.CreatedBy)

	stored, err := svc.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ana Souza", stored.Name)
	assert.Equal(t, model.ActionUpdated, pub.Changes()[len(pub.Changes())-1].Action)

	_, err = svc.Update(ctx, uuid.New(), fields, admin)
	assert.ErrorIs(t, err, repository.ErrStudentNotFound)
}

func TestStudentServiceDelete(t *testing.T) {
	ctx := context.Background()
	store := servicetest.NewStudentStore()
	pub := &servicetest.Publisher{}
	svc := NewStudentService(store, pub, zerolog.Nop())
	admin := uuid.New()

	created, err := svc.Create(ctx, anaFields(), admin, admin)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, created.ID, admin))
	last := pub.Changes()[len(pub.Changes())-1]
	assert.Equal(t, model.ActionDeleted, last.Action)
	assert.Nil(t, last.Snapshot)

	assert.ErrorIs(t, svc.Delete(ctx, created.ID, admin), repository.ErrStudentNotFound)
}

func TestStudentServicePublishFailureIsNotFatal(t *testing.T) {
	ctx := context.Background()
	store := servicetest.NewStudentStore()
	svc := NewStudentService(store, &servicetest.Publisher{Err: servicetest.ErrBoom}, zerolog.Nop())
	admin := uuid.New()

	_, err := svc.Create(ctx, anaFields(), admin, admin)
	require.NoError(t, err)
	assert.Equal(t, 1, store.Len())
}

func TestStudentServiceListAndSummary(t *testing.T) {
	ctx := context.Background()
	store := servicetest.NewStudentStore()
	svc := NewStudentService(store, nil, zerolog.Nop())
	admin := uuid.New()

	list, err := svc.List(ctx)
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)

	bruno := anaFields()
	bruno.Name = "Bruno Souza"
	bruno.Enrollment = "2024002"
	bruno.Email = "bruno@escola.test"
	bruno.Status = model.StatusInactive

	_, err = svc.Create(ctx, anaFields(), admin, admin)
	require.NoError(t, err)
	_, err = svc.Create(ctx, bruno, admin, admin)
	require.NoError(t, err)

	list, err = svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Bruno Souza", list[0].Name)
	assert.Equal(t, "Ana Silva", list[1].Name)

	sum, err := svc.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.StudentSummary{Total: 2, Active: 1, Inactive: 1}, sum)

	store.FailList = servicetest.ErrBoom
	_, err = svc.List(ctx)
	assert.ErrorIs(t, err, servicetest.ErrBoom)
}
