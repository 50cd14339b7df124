/*
Copyright 2025.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package controller

import (
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/equality"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/event"
	"sigs.k8s.io/controller-runtime/pkg/predicate"

	"github.com/dc-tec/kafka-cluster-operator/internal/constants"
)

// IsClusterConfigMap reports whether obj carries the strimzi.io/kind=cluster label.
func IsClusterConfigMap(obj client.Object) bool {
	if obj == nil {
		return false
	}
	return obj.GetLabels()[constants.LabelStrimziKind] == constants.LabelValueKindCluster
}

// ClusterConfigMapPredicate admits events for ConfigMaps that declare a Kafka cluster.
//
// Updates are admitted when the data, labels or deletion state change. An update that
// removes the cluster label is still admitted so the reconciler can clean up; the
// reconciler itself treats the no-longer-labelled ConfigMap as gone.
func ClusterConfigMapPredicate() predicate.Predicate {
	return predicate.Funcs{
		CreateFunc: func(e event.CreateEvent) bool {
			return IsClusterConfigMap(e.Object)
		},
		DeleteFunc: func(e event.DeleteEvent) bool {
			return IsClusterConfigMap(e.Object)
		},
		UpdateFunc: func(e event.UpdateEvent) bool {
			if !IsClusterConfigMap(e.ObjectOld) && !IsClusterConfigMap(e.ObjectNew) {
				return false
			}
			oldCM, ok := e.ObjectOld.(*corev1.ConfigMap)
			if !ok {
				return true
			}
			newCM, ok := e.ObjectNew.(*corev1.ConfigMap)
			if !ok {
				return true
			}

			if !equality.Semantic.DeepEqual(oldCM.Data, newCM.Data) {
				return true
			}
			if !equality.Semantic.DeepEqual(oldCM.Labels, newCM.Labels) {
				return true
			}
			return !oldCM.DeletionTimestamp.Equal(newCM.DeletionTimestamp)
		},
		GenericFunc: func(e event.GenericEvent) bool {
			return IsClusterConfigMap(e.Object)
		},
	}
}

// ResourceGenerationChangedPredicate filters update events to only trigger
// reconciliation when the Generation or labels change. Status-only updates of
// owned Deployments are dropped; a spec edit made behind the operator's back is not.
func ResourceGenerationChangedPredicate() predicate.Predicate {
	return predicate.Funcs{
		CreateFunc: func(e event.CreateEvent) bool {
			return true
		},
		DeleteFunc: func(e event.DeleteEvent) bool {
			return true
		},
		UpdateFunc: func(e event.UpdateEvent) bool {
			oldObj, ok := e.ObjectOld.(metav1.Object)
			if !ok {
				return true
			}
			newObj, ok := e.ObjectNew.(metav1.Object)
			if !ok {
				return true
			}

			if oldObj.GetGeneration() != newObj.GetGeneration() {
				return true
			}
			return !equality.Semantic.DeepEqual(oldObj.GetLabels(), newObj.GetLabels())
		},
		GenericFunc: func(e event.GenericEvent) bool {
			return true
		},
	}
}
