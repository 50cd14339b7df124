//go:build integration
// +build integration

package integration

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/types"

	"github.com/dc-tec/kafka-cluster-operator/internal/constants"
	tcspec "github.com/dc-tec/kafka-cluster-operator/internal/topiccontroller"
)

var _ = Describe("Topic controller lifecycle", Ordered, func() {
	const (
		namespace   = "kafka-it"
		clusterName = "it-cluster"
		timeout     = 30 * time.Second
		interval    = 250 * time.Millisecond
	)

	depKey := types.NamespacedName{Namespace: namespace, Name: tcspec.DeploymentName(clusterName)}
	cmKey := types.NamespacedName{Namespace: namespace, Name: clusterName}

	containerImage := func(g Gomega) string {
		dep := &appsv1.Deployment{}
		g.Expect(k8sClient.Get(ctx, depKey, dep)).To(Succeed())
		g.Expect(dep.Spec.Template.Spec.Containers).NotTo(BeEmpty())
		return dep.Spec.Template.Spec.Containers[0].Image
	}

	BeforeAll(func() {
		Expect(k8sClient.Create(ctx, &corev1.Namespace{ObjectMeta: metav1.ObjectMeta{Name: namespace}})).To(Succeed())
	})

	It("creates the Deployment for a new cluster ConfigMap", func() {
		cm := &corev1.ConfigMap{
			ObjectMeta: metav1.ObjectMeta{
				Name:      clusterName,
				Namespace: namespace,
				Labels: map[string]string{
					constants.LabelStrimziKind:    constants.LabelValueKindCluster,
					constants.LabelStrimziCluster: clusterName,
				},
			},
			Data: map[string]string{
				constants.KeyTopicControllerConfig: `{"image":"strimzi/topic-controller:0.2","reconciliationIntervalMs":"60000"}`,
			},
		}
		Expect(k8sClient.Create(ctx, cm)).To(Succeed())

		Eventually(containerImage, timeout, interval).Should(Equal("strimzi/topic-controller:0.2"))

		dep := &appsv1.Deployment{}
		Expect(k8sClient.Get(ctx, depKey, dep)).To(Succeed())
		Expect(metav1.GetControllerOf(dep)).NotTo(BeNil())
		Expect(dep.Spec.Strategy.Type).To(Equal(appsv1.RecreateDeploymentStrategyType))
	})

	It("reverts a manual image change", func() {
		Eventually(func(g Gomega) {
			dep := &appsv1.Deployment{}
			g.Expect(k8sClient.Get(ctx, depKey, dep)).To(Succeed())
			dep.Spec.Template.Spec.Containers[0].Image = "strimzi/topic-controller:0.1"
			g.Expect(k8sClient.Update(ctx, dep)).To(Succeed())
		}, timeout, interval).Should(Succeed())

		Eventually(containerImage, timeout, interval).Should(Equal("strimzi/topic-controller:0.2"))
	})

	It("follows changes to the configuration document", func() {
		Eventually(func(g Gomega) {
			cm := &corev1.ConfigMap{}
			g.Expect(k8sClient.Get(ctx, cmKey, cm)).To(Succeed())
			cm.Data[constants.KeyTopicControllerConfig] = `{"image":"strimzi/topic-controller:0.3"}`
			g.Expect(k8sClient.Update(ctx, cm)).To(Succeed())
		}, timeout, interval).Should(Succeed())

		Eventually(containerImage, timeout, interval).Should(Equal("strimzi/topic-controller:0.3"))
	})

	It("removes the Deployment when the configuration key is dropped", func() {
		Eventually(func(g Gomega) {
			cm := &corev1.ConfigMap{}
			g.Expect(k8sClient.Get(ctx, cmKey, cm)).To(Succeed())
			delete(cm.Data, constants.KeyTopicControllerConfig)
			g.Expect(k8sClient.Update(ctx, cm)).To(Succeed())
		}, timeout, interval).Should(Succeed())

		Eventually(func() bool {
			err := k8sClient.Get(ctx, depKey, &appsv1.Deployment{})
			return apierrors.IsNotFound(err)
		}, timeout, interval).Should(BeTrue())
	})
})
