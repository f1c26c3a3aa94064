package kube

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes/fake"
)

func TestEnsureNamespaceCreates(t *testing.T) {
	client := fake.NewSimpleClientset()

	created, err := EnsureNamespace(context.Background(), client, "argocd")
	require.NoError(t, err)
	assert.True(t, created)

	_, err = client.CoreV1().Namespaces().Get(context.Background(), "argocd", metav1.GetOptions{})
	require.NoError(t, err)
}

func TestEnsureNamespaceAlreadyExists(t *testing.T) {
	client := fake.NewSimpleClientset(&corev1.Namespace{
		ObjectMeta: metav1.ObjectMeta{Name: "argocd"},
	})

	created, err := EnsureNamespace(context.Background(), client, "argocd")
	require.NoError(t, err)
	assert.False(t, created)
}

func TestApplyConfigMapCreates(t *testing.T) {
	client := fake.NewSimpleClientset()

	err := ApplyConfigMap(context.Background(), client, "default", "tunnel-env", map[string]string{
		"TUNNEL_URL": "https://x.trycloudflare.com",
	})
	require.NoError(t, err)

	cm, err := client.CoreV1().ConfigMaps("default").Get(context.Background(), "tunnel-env", metav1.GetOptions{})
	require.NoError(t, err)
	assert.Equal(t, "https://x.trycloudflare.com", cm.Data["TUNNEL_URL"])
	assert.Equal(t, "devstack", cm.Labels["app.kubernetes.io/managed-by"])
}

func TestApplyConfigMapUpdatesExisting(t *testing.T) {
	client := fake.NewSimpleClientset(&corev1.ConfigMap{
		ObjectMeta: metav1.ObjectMeta{Name: "tunnel-env", Namespace: "default"},
		Data:       map[string]string{"TUNNEL_URL": "https://old.trycloudflare.com"},
	})

	err := ApplyConfigMap(context.Background(), client, "default", "tunnel-env", map[string]string{
		"TUNNEL_URL": "https://new.trycloudflare.com",
	})
	require.NoError(t, err)

	cm, err := client.CoreV1().ConfigMaps("default").Get(context.Background(), "tunnel-env", metav1.GetOptions{})
	require.NoError(t, err)
	assert.Equal(t, "https://new.trycloudflare.com", cm.Data["TUNNEL_URL"])
}

func deployment(ready, desired int32) *appsv1.Deployment {
	return &appsv1.Deployment{
		ObjectMeta: metav1.ObjectMeta{Name: "argocd-server", Namespace: "argocd"},
		Spec:       appsv1.DeploymentSpec{Replicas: &desired},
		Status:     appsv1.DeploymentStatus{ReadyReplicas: ready},
	}
}

func TestWaitForDeploymentReadyImmediate(t *testing.T) {
	client := fake.NewSimpleClientset(deployment(1, 1))

	err := WaitForDeploymentReady(context.Background(), client, "argocd", "argocd-server", 5*time.Second)
	require.NoError(t, err)
}

func TestWaitForDeploymentReadyTimesOut(t *testing.T) {
	client := fake.NewSimpleClientset(deployment(0, 1))

	err := WaitForDeploymentReady(context.Background(), client, "argocd", "argocd-server", 100*time.Millisecond)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timeout waiting for deployment")
}

func TestWaitForDeploymentMissingKeepsPolling(t *testing.T) {
	client := fake.NewSimpleClientset()

	err := WaitForDeploymentReady(context.Background(), client, "argocd", "argocd-server", 100*time.Millisecond)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timeout")
}

func pod(phase corev1.PodPhase) *corev1.Pod {
	return &corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{Name: "table-init", Namespace: "localstack"},
		Status:     corev1.PodStatus{Phase: phase},
	}
}

func TestWaitForPodCompletionSucceeded(t *testing.T) {
	client := fake.NewSimpleClientset(pod(corev1.PodSucceeded))

	err := WaitForPodCompletion(context.Background(), client, "localstack", "table-init", 5*time.Second)
	require.NoError(t, err)
}

func TestWaitForPodCompletionFailed(t *testing.T) {
	client := fake.NewSimpleClientset(pod(corev1.PodFailed))

	err := WaitForPodCompletion(context.Background(), client, "localstack", "table-init", 5*time.Second)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed")
}

func TestWaitForPodCompletionTimesOut(t *testing.T) {
	client := fake.NewSimpleClientset(pod(corev1.PodRunning))

	err := WaitForPodCompletion(context.Background(), client, "localstack", "table-init", 100*time.Millisecond)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timeout")
}
