// Package kube wraps the small set of cluster operations devstack needs:
// idempotent namespace and ConfigMap creation and readiness waits.
package kube

import (
	"context"
	"fmt"
	"time"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"

	helmcli "helm.sh/helm/v3/pkg/cli"
)

// NewClient builds a clientset from the ambient kubeconfig, resolved the
// same way Helm resolves it so both layers always talk to the same cluster.
func NewClient() (kubernetes.Interface, error) {
	settings := helmcli.New()
	cfg, err := settings.RESTClientGetter().ToRESTConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load kubeconfig: %w", err)
	}
	clientset, err := kubernetes.NewForConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kubernetes client: %w", err)
	}
	return clientset, nil
}

// EnsureNamespace creates the namespace if missing. Returns true when it
// was created, false when it already existed.
func EnsureNamespace(ctx context.Context, client kubernetes.Interface, name string) (bool, error) {
	ns := &corev1.Namespace{ObjectMeta: metav1.ObjectMeta{Name: name}}
	_, err := client.CoreV1().Namespaces().Create(ctx, ns, metav1.CreateOptions{})
	if err != nil {
		if apierrors.IsAlreadyExists(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to create namespace %s: %w", name, err)
	}
	return true, nil
}

// ApplyConfigMap creates or replaces a ConfigMap's data, the programmatic
// equivalent of `kubectl create --dry-run=client -o yaml | kubectl apply -f -`.
func ApplyConfigMap(ctx context.Context, client kubernetes.Interface, namespace, name string, data map[string]string) error {
	cm := &corev1.ConfigMap{
		ObjectMeta: metav1.ObjectMeta{
			Name:      name,
			Namespace: namespace,
			Labels: map[string]string{
				"app.kubernetes.io/managed-by": "devstack",
			},
		},
		Data: data,
	}

	_, err := client.CoreV1().ConfigMaps(namespace).Create(ctx, cm, metav1.CreateOptions{})
	if err == nil {
		return nil
	}
	if !apierrors.IsAlreadyExists(err) {
		return fmt.Errorf("failed to create configmap %s/%s: %w", namespace, name, err)
	}

	existing, err := client.CoreV1().ConfigMaps(namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return fmt.Errorf("failed to get configmap %s/%s: %w", namespace, name, err)
	}
	existing.Data = data
	if _, err := client.CoreV1().ConfigMaps(namespace).Update(ctx, existing, metav1.UpdateOptions{}); err != nil {
		return fmt.Errorf("failed to update configmap %s/%s: %w", namespace, name, err)
	}
	return nil
}

// WaitForDeploymentReady polls until the deployment's ready replicas match
// its desired replicas. Fixed-interval polling with a context deadline.
func WaitForDeploymentReady(ctx context.Context, client kubernetes.Interface, namespace, name string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		ready, err := deploymentReady(ctx, client, namespace, name)
		if err != nil {
			return err
		}
		if ready {
			return nil
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for deployment %s/%s to become ready", namespace, name)
		case <-ticker.C:
		}
	}
}

func deploymentReady(ctx context.Context, client kubernetes.Interface, namespace, name string) (bool, error) {
	dep, err := client.AppsV1().Deployments(namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		if apierrors.IsNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to get deployment %s/%s: %w", namespace, name, err)
	}

	desired := int32(1)
	if dep.Spec.Replicas != nil {
		desired = *dep.Spec.Replicas
	}
	return dep.Status.ReadyReplicas >= desired, nil
}

// WaitForPodCompletion polls until the pod reaches Succeeded. A Failed pod
// is an error; any other phase keeps polling until the timeout.
func WaitForPodCompletion(ctx context.Context, client kubernetes.Interface, namespace, name string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		pod, err := client.CoreV1().Pods(namespace).Get(ctx, name, metav1.GetOptions{})
		switch {
		case apierrors.IsNotFound(err):
			// Not created yet; keep polling.
		case err != nil:
			return fmt.Errorf("failed to get pod %s/%s: %w", namespace, name, err)
		case pod.Status.Phase == corev1.PodSucceeded:
			return nil
		case pod.Status.Phase == corev1.PodFailed:
			return fmt.Errorf("pod %s/%s failed", namespace, name)
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for pod %s/%s to complete", namespace, name)
		case <-ticker.C:
		}
	}
}

// Reachable reports whether the API server answers a version probe.
func Reachable(client kubernetes.Interface) bool {
	_, err := client.Discovery().ServerVersion()
	return err == nil
}
