package k8s

import (
	"context"
	"fmt"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/fields"
)

// GetConfigMapData returns the data of the config map called name in namespace.
// The lookup lists by field selector, so a missing config map is reported as
// ErrConfigMapNotFound rather than as an API error.
func (c *Connection) GetConfigMapData(ctx context.Context, namespace, name string) (map[string]string, error) {
	c.logOperation("get-configmap", namespace, name)

	list, err := c.clientset.CoreV1().ConfigMaps(namespace).List(ctx, metav1.ListOptions{
		FieldSelector: fields.OneTermEqualSelector("metadata.name", name).String(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list config maps in namespace %s: %w", namespace, err)
	}

	for _, cm := range list.Items {
		if cm.Name != name {
			continue
		}
		data := make(map[string]string, len(cm.Data))
		for k, v := range cm.Data {
			data[k] = v
		}
		return data, nil
	}

	return nil, fmt.Errorf("%w: %s/%s", ErrConfigMapNotFound, namespace, name)
}
