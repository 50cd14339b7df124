// Package kube provides typed resource operations on top of the controller-runtime client.
package kube

import (
	"context"
	"fmt"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/types"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/dc-tec/kafka-cluster-operator/internal/constants"
	operatorerrors "github.com/dc-tec/kafka-cluster-operator/internal/errors"
)

// Operations performs get, create, patch and delete for one resource kind. T must
// be a pointer type such as *appsv1.Deployment.
//
// Errors the API server reports as retryable (conflicts, throttling, timeouts,
// unavailability) are wrapped with ErrTransientKubernetesAPI so callers can classify
// them with operatorerrors.IsTransient.
type Operations[T client.Object] struct {
	client client.Client
	newObj func() T
}

// NewOperations returns Operations backed by c. newObj must return a fresh, empty T.
func NewOperations[T client.Object](c client.Client, newObj func() T) *Operations[T] {
	return &Operations[T]{client: c, newObj: newObj}
}

// Get fetches the object identified by key. It returns the zero T and no error when
// the object does not exist.
func (o *Operations[T]) Get(ctx context.Context, key types.NamespacedName) (T, error) {
	obj := o.newObj()
	if err := o.client.Get(ctx, key, obj); err != nil {
		var zero T
		if apierrors.IsNotFound(err) {
			return zero, nil
		}
		return zero, classify(fmt.Errorf("failed to get %s: %w", key, err))
	}
	return obj, nil
}

// Create creates obj.
func (o *Operations[T]) Create(ctx context.Context, obj T) error {
	if err := o.client.Create(ctx, obj, client.FieldOwner(constants.FieldOwner)); err != nil {
		return classify(fmt.Errorf("failed to create %s: %w", client.ObjectKeyFromObject(obj), err))
	}
	return nil
}

// Patch sends the difference between current and desired as a merge patch. desired
// must be derived from current, typically through DeepCopy.
func (o *Operations[T]) Patch(ctx context.Context, current, desired T) error {
	if err := o.client.Patch(ctx, desired, client.MergeFrom(current), client.FieldOwner(constants.FieldOwner)); err != nil {
		return classify(fmt.Errorf("failed to patch %s: %w", client.ObjectKeyFromObject(desired), err))
	}
	return nil
}

// Delete removes the object identified by key. A missing object is not an error.
func (o *Operations[T]) Delete(ctx context.Context, key types.NamespacedName) error {
	obj := o.newObj()
	obj.SetName(key.Name)
	obj.SetNamespace(key.Namespace)

	if err := o.client.Delete(ctx, obj); err != nil && !apierrors.IsNotFound(err) {
		return classify(fmt.Errorf("failed to delete %s: %w", key, err))
	}
	return nil
}

func classify(err error) error {
	switch {
	case apierrors.IsConflict(err),
		apierrors.IsAlreadyExists(err),
		apierrors.IsTooManyRequests(err),
		apierrors.IsServerTimeout(err),
		apierrors.IsTimeout(err),
		apierrors.IsServiceUnavailable(err),
		apierrors.IsInternalError(err):
		return operatorerrors.WrapTransientKubernetesAPI(err)
	case operatorerrors.IsTransientConnection(err):
		return operatorerrors.WrapTransientConnection(err)
	default:
		return err
	}
}
