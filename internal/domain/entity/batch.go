package entity

// DefaultBatchSize размер пакета для массовой отправки.
const DefaultBatchSize = 50

// Chunk делит срез на последовательные пакеты размером не более size.
// Пакеты разделяют память с исходным срезом.
func Chunk[T any](items []T, size int) [][]T {
	if size <= 0 {
		size = DefaultBatchSize
	}
	if len(items) == 0 {
		return nil
	}

	chunks := make([][]T, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		chunks = append(chunks, items[start:end:end])
	}
	return chunks
}
