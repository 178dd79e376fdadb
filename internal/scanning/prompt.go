package scanning

// receiptScanPrompt is the shared prompt used by all LLM providers for scanning receipts
const receiptScanPrompt = `You are reading a Thai receipt, tax invoice or abbreviated tax invoice. Read all text in the image and extract the document's fields.

Return ONLY valid JSON in this exact shape:
{
  "shopName": "seller or shop name",
  "shopBranch": "branch name or number",
  "shopAddress": "seller address",
  "shopPhone": "seller phone",
  "shopTaxId": "13 digit seller tax ID",
  "isVatRegistered": true,
  "customerName": "buyer name",
  "customerAddress": "buyer address",
  "customerPhone": "buyer phone",
  "customerTaxId": "buyer tax ID",
  "receiptNo": "receipt or invoice number",
  "refNo": "reference number",
  "date": "YYYY-MM-DD",
  "category": "general_receipt | full_tax_invoice | abbreviated_tax_invoice",
  "items": [{"name": "item", "qty": "1", "unit": "piece", "price": "0.00"}],
  "discountTotal": "0.00",
  "serviceCharge": "0.00",
  "shippingFee": "0.00",
  "vatAmount": "0.00",
  "total": "0.00"
}

Rules:
- Dates printed in the Buddhist era (for example 2569) must be converted to the Gregorian year (subtract 543)
- "price" is the unit price, not the line total
- Amounts are plain numbers without currency symbols or thousands separators
- Use null for any field you cannot find
- Do not include any text before or after the JSON`
