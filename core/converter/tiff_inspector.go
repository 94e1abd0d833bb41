package converter

import (
	"encoding/binary"
	"io"
	"os"
)

// TiffCompression TIFF内部压缩方式
type TiffCompression string

const (
	CompressionNone    TiffCompression = "none"
	CompressionLZW     TiffCompression = "lzw"
	CompressionJPEG    TiffCompression = "jpeg"
	CompressionDeflate TiffCompression = "deflate"
	CompressionOther   TiffCompression = "other"
	CompressionUnknown TiffCompression = "unknown"
)

const (
	tiffTagCompression = 259
	tiffIFDEntrySize   = 12
	// tiffMaxEntries 病态文件的扫描上限
	tiffMaxEntries = 100
)

// String 返回压缩方式名称
func (c TiffCompression) String() string {
	return string(c)
}

// InspectTiff 解析第一个IFD的压缩标签
func InspectTiff(path string) TiffCompression {
	f, err := os.Open(path)
	if err != nil {
		return CompressionUnknown
	}
	defer f.Close()
	return InspectTiffReader(f)
}

// InspectTiffReader 从任意可寻址读取器解析压缩标签。
// 标签不存在返回 None，文件头或IFD不可读返回 Unknown。
func InspectTiffReader(r io.ReadSeeker) TiffCompression {
	header := make([]byte, 8)
	if _, err := io.ReadFull(r, header); err != nil {
		return CompressionUnknown
	}

	var order binary.ByteOrder = binary.BigEndian
	if header[0] == 'I' {
		order = binary.LittleEndian
	}

	ifdOffset := order.Uint32(header[4:8])
	if _, err := r.Seek(int64(ifdOffset), io.SeekStart); err != nil {
		return CompressionUnknown
	}

	countBuf := make([]byte, 2)
	if _, err := io.ReadFull(r, countBuf); err != nil {
		return CompressionUnknown
	}
	count := int(order.Uint16(countBuf))
	if count > tiffMaxEntries {
		count = tiffMaxEntries
	}

	entry := make([]byte, tiffIFDEntrySize)
	for i := 0; i < count; i++ {
		if _, err := io.ReadFull(r, entry); err != nil {
			return CompressionUnknown
		}
		if order.Uint16(entry[0:2]) != tiffTagCompression {
			continue
		}
		return compressionFromValue(order.Uint16(entry[8:10]))
	}

	// 未标注压缩的TIFF按未压缩处理
	return CompressionNone
}

func compressionFromValue(v uint16) TiffCompression {
	switch v {
	case 1:
		return CompressionNone
	case 5:
		return CompressionLZW
	case 7:
		return CompressionJPEG
	case 8, 32946:
		return CompressionDeflate
	}
	return CompressionOther
}
